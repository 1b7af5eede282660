package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UploadStatus string

const (
	UploadStatusUploaded   UploadStatus = "uploaded"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusError      UploadStatus = "error"
)

// Structural limits enforced on every upload write. Violation rejects the
// write entirely; nothing is persisted.
const (
	MaxUploadFileSize       = 100 << 20 // 100 MiB
	MaxUploadRowCount       = 10_000
	MaxUploadColumnCount    = 100
	MaxTimeSeriesPayloadLen = 50 << 20 // 50 MiB serialized
)

type CsvUpload struct {
	ID     string `json:"id" gorm:"primaryKey;size:255"`
	UserID string `json:"user_id" gorm:"not null;size:255;index"`

	Filename       string `json:"filename" gorm:"not null;size:500" validate:"required,max=500"`
	CustomFilename string `json:"custom_filename" gorm:"size:500" validate:"omitempty,max=500"`

	// Location of the raw artifact in object storage, kept so a later delete
	// can remove it.
	StorageURL  string `json:"storage_url" gorm:"size:1000"`
	StoragePath string `json:"storage_path" gorm:"size:1000"`

	FileSize    int64        `json:"file_size" gorm:"not null"`
	ColumnCount int          `json:"column_count" gorm:"not null"`
	RowCount    int          `json:"row_count" gorm:"not null"`
	Status      UploadStatus `json:"status" gorm:"not null;default:uploaded;size:20;index" validate:"omitempty,oneof=uploaded processing completed error"`

	FileMetadata datatypes.JSON `json:"file_metadata" gorm:"type:jsonb"`
	// TimeSeriesData is the parsed CSV payload; reads serve this column and
	// never re-parse the stored file.
	TimeSeriesData datatypes.JSON `json:"time_series_data" gorm:"type:jsonb"`

	UploadedAt  time.Time  `json:"uploaded_at" gorm:"not null"`
	ProcessedAt *time.Time `json:"processed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User      User           `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Anomalies []Anomaly      `json:"anomalies,omitempty" gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"`
	Shares    []SharedResult `json:"-" gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"`

	// Computed fields (not stored)
	AnomalyCount int `json:"anomaly_count" gorm:"-"`
}

func (CsvUpload) TableName() string {
	return "csv_uploads"
}

func (u *CsvUpload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.UploadedAt.IsZero() {
		u.UploadedAt = time.Now().UTC()
	}
	return nil
}
