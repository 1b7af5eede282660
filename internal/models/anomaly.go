package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Anomaly is an append-only output of the external detection pipeline. This
// service only guarantees that it references an existing upload.
type Anomaly struct {
	ID       string `json:"id" gorm:"primaryKey;size:255"`
	UploadID string `json:"upload_id" gorm:"not null;size:255;index"`

	// AnomalyType is a pipeline-defined tag, e.g. "p50_median_spike".
	AnomalyType  string    `json:"anomaly_type" gorm:"not null;size:100" validate:"required,max=100"`
	DetectedDate time.Time `json:"detected_date" gorm:"not null"`

	WeekBeforeValue *float64 `json:"week_before_value"`
	CurrentValue    *float64 `json:"current_value"`

	Description string  `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Analysis    *string `json:"analysis" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Upload CsvUpload `json:"-" gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"`
}

func (Anomaly) TableName() string {
	return "anomalies"
}

func (a *Anomaly) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
