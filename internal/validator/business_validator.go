package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/learnflow/lms-service/internal/models"
)

// BusinessValidator enforces the domain rules that struct tags cannot
// express, on top of go-playground struct validation.
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	v := validator.New()

	v.RegisterValidation("course_level", validateCourseLevel)
	v.RegisterValidation("share_permission", validateSharePermission)
	v.RegisterValidation("expiration_option", validateExpirationOption)
	v.RegisterValidation("upload_status", validateUploadStatus)

	return &BusinessValidator{validate: v}
}

// ===== CUSTOM VALIDATION RULES =====

func validateCourseLevel(fl validator.FieldLevel) bool {
	switch models.CourseLevel(fl.Field().String()) {
	case models.LevelBeginner, models.LevelIntermediate, models.LevelAdvanced:
		return true
	}
	return false
}

func validateSharePermission(fl validator.FieldLevel) bool {
	switch models.SharePermission(fl.Field().String()) {
	case models.PermissionViewOnly, models.PermissionViewDownload:
		return true
	}
	return false
}

func validateExpirationOption(fl validator.FieldLevel) bool {
	switch models.ExpirationOption(fl.Field().String()) {
	case models.Expire24Hours, models.Expire7Days, models.Expire30Days, models.ExpireNever:
		return true
	}
	return false
}

func validateUploadStatus(fl validator.FieldLevel) bool {
	switch models.UploadStatus(fl.Field().String()) {
	case models.UploadStatusUploaded, models.UploadStatusProcessing,
		models.UploadStatusCompleted, models.UploadStatusError:
		return true
	}
	return false
}

// ===== UPLOAD SUBMISSION =====

// ValidateUploadSubmission runs the full pre-persistence check sequence for a
// CSV upload. Checks run in a fixed order and all violations are collected so
// the caller sees every problem at once. A field left absent skips its limit
// check; zero values are within bounds.
func (bv *BusinessValidator) ValidateUploadSubmission(req *UploadCreateRequest) ValidationErrors {
	var errors ValidationErrors

	if err := bv.validate.Struct(req); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}

	if req.FileSize != nil && *req.FileSize > models.MaxUploadFileSize {
		errors = append(errors, ValidationError{
			Field:   "file_size",
			Message: fmt.Sprintf("file size %d exceeds the maximum of %d bytes", *req.FileSize, int64(models.MaxUploadFileSize)),
			Value:   *req.FileSize,
			Allowed: int64(models.MaxUploadFileSize),
			Rule:    "max_file_size",
		})
	}

	if req.RowCount != nil && *req.RowCount > models.MaxUploadRowCount {
		errors = append(errors, ValidationError{
			Field:   "row_count",
			Message: fmt.Sprintf("row count %d exceeds the maximum of %d rows", *req.RowCount, models.MaxUploadRowCount),
			Value:   *req.RowCount,
			Allowed: models.MaxUploadRowCount,
			Rule:    "max_row_count",
		})
	}

	if req.ColumnCount != nil && *req.ColumnCount > models.MaxUploadColumnCount {
		errors = append(errors, ValidationError{
			Field:   "column_count",
			Message: fmt.Sprintf("column count %d exceeds the maximum of %d columns", *req.ColumnCount, models.MaxUploadColumnCount),
			Value:   *req.ColumnCount,
			Allowed: models.MaxUploadColumnCount,
			Rule:    "max_column_count",
		})
	}

	if payloadLen := len(req.TimeSeriesData); payloadLen > models.MaxTimeSeriesPayloadLen {
		errors = append(errors, ValidationError{
			Field:   "time_series_data",
			Message: fmt.Sprintf("serialized payload of %d bytes exceeds the maximum of %d bytes", payloadLen, models.MaxTimeSeriesPayloadLen),
			Value:   payloadLen,
			Allowed: models.MaxTimeSeriesPayloadLen,
			Rule:    "max_payload_size",
		})
	}

	return errors
}

// ===== SHARE CREATION =====

func (bv *BusinessValidator) ValidateShareCreation(req *ShareCreateRequest) ValidationErrors {
	var errors ValidationErrors
	if err := bv.validate.Struct(req); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}
	return errors
}

// ===== COURSE CREATION =====

func (bv *BusinessValidator) ValidateCourseCreation(req *CourseCreateRequest) ValidationErrors {
	var errors ValidationErrors
	if err := bv.validate.Struct(req); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}
	return errors
}

// ===== QUIZ RESULT =====

func (bv *BusinessValidator) ValidateQuizResult(req *QuizResultRequest) ValidationErrors {
	var errors ValidationErrors
	if err := bv.validate.Struct(req); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}
	if req.Total > 0 && req.Score > req.Total {
		errors = append(errors, ValidationError{
			Field:   "score",
			Message: fmt.Sprintf("score %d cannot exceed the question total %d", req.Score, req.Total),
			Value:   req.Score,
			Allowed: req.Total,
			Rule:    "score_within_total",
		})
	}
	return errors
}
