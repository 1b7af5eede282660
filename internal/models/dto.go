package models

import (
	"time"
)

// ===== PAGINATION =====

type PaginatedResponse struct {
	Content          interface{} `json:"content"`
	TotalElements    int64       `json:"total_elements"`
	TotalPages       int         `json:"total_pages"`
	Size             int         `json:"size"`
	Page             int         `json:"page"`
	NumberOfElements int         `json:"number_of_elements"`
	Empty            bool        `json:"empty"`
}

// ===== ERROR RESPONSES =====

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Code    string `json:"code"`
}

type ErrorResponse struct {
	Error            string                    `json:"error"`
	Message          string                    `json:"message"`
	Code             string                    `json:"code"`
	Details          interface{}               `json:"details,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
	Path             string                    `json:"path"`
	ValidationErrors []ValidationErrorResponse `json:"validation_errors,omitempty"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ===== UPLOAD SUMMARY DTOs =====

type UploadSummary struct {
	ID             string       `json:"id"`
	Filename       string       `json:"filename"`
	CustomFilename string       `json:"custom_filename"`
	FileSize       int64        `json:"file_size"`
	RowCount       int          `json:"row_count"`
	ColumnCount    int          `json:"column_count"`
	Status         UploadStatus `json:"status"`
	AnomalyCount   int          `json:"anomaly_count"`
	UploadedAt     time.Time    `json:"uploaded_at"`
	ProcessedAt    *time.Time   `json:"processed_at"`
}

// SharedUploadView is the scoped projection served to anonymous share-link
// consumers: results only, never storage internals or owner identity.
type SharedUploadView struct {
	Title          *string         `json:"title"`
	Description    *string         `json:"description"`
	Permissions    SharePermission `json:"permissions"`
	Filename       string          `json:"filename"`
	CustomFilename string          `json:"custom_filename"`
	RowCount       int             `json:"row_count"`
	ColumnCount    int             `json:"column_count"`
	Status         UploadStatus    `json:"status"`
	UploadedAt     time.Time       `json:"uploaded_at"`
	ProcessedAt    *time.Time      `json:"processed_at"`
	TimeSeriesData interface{}     `json:"time_series_data,omitempty"`
	Anomalies      []Anomaly       `json:"anomalies"`
}
