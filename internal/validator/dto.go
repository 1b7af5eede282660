package validator

import (
	"encoding/json"

	"github.com/learnflow/lms-service/internal/models"
)

// UploadCreateRequest represents a pending CSV upload submission. The numeric
// shape fields are pointers: a missing field skips its corresponding limit
// check rather than failing it.
type UploadCreateRequest struct {
	Filename       string                `json:"filename" validate:"required,max=500"`
	CustomFilename *string               `json:"custom_filename" validate:"omitempty,max=500"`
	FileSize       *int64                `json:"file_size" validate:"omitempty,min=0"`
	ColumnCount    *int                  `json:"column_count" validate:"omitempty,min=0"`
	RowCount       *int                  `json:"row_count" validate:"omitempty,min=0"`
	TimeSeriesData json.RawMessage       `json:"time_series_data"`
	FileMetadata   json.RawMessage       `json:"file_metadata"`
	Status         []models.UploadStatus `json:"-"`
}

// ShareCreateRequest mints a share link for one upload.
type ShareCreateRequest struct {
	Permissions      models.SharePermission  `json:"permissions" validate:"required,share_permission"`
	ExpirationOption models.ExpirationOption `json:"expiration" validate:"required,expiration_option"`
	Title            *string                 `json:"title" validate:"omitempty,max=200"`
	Description      *string                 `json:"description" validate:"omitempty,max=1000"`
}

type CourseCreateRequest struct {
	Title       string             `json:"title" validate:"required,min=1,max=200"`
	Description string             `json:"description" validate:"omitempty,max=2000"`
	Level       models.CourseLevel `json:"level" validate:"required,course_level"`
	Price       int                `json:"price" validate:"min=0"`
	Rating      float64            `json:"rating" validate:"min=0,max=5"`
}

type EnrollmentProgressRequest struct {
	Progress int `json:"progress" validate:"min=0,max=100"`
}

type QuizCreateRequest struct {
	Title     string          `json:"title" validate:"required,min=1,max=200"`
	Questions json.RawMessage `json:"questions"`
}

type QuizResultRequest struct {
	Score   int             `json:"score" validate:"min=0"`
	Total   int             `json:"total" validate:"required,min=1"`
	Answers json.RawMessage `json:"answers"`
}

type AnomalyCreateRequest struct {
	AnomalyType     string   `json:"anomaly_type" validate:"required,max=100"`
	DetectedDate    string   `json:"detected_date" validate:"required"`
	WeekBeforeValue *float64 `json:"week_before_value"`
	CurrentValue    *float64 `json:"current_value"`
	Description     string   `json:"description" validate:"omitempty,max=2000"`
	Analysis        *string  `json:"analysis"`
}

type SupportMessageRequest struct {
	Name    string `json:"name" validate:"omitempty,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=1,max=5000"`
}
