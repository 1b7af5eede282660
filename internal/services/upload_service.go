package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/events"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/storage"
	"github.com/learnflow/lms-service/internal/validator"
)

type uploadService struct {
	repo      repositories.Repository
	db        *gorm.DB
	store     storage.ArtifactStore
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUploadService(repo repositories.Repository, db *gorm.DB, store storage.ArtifactStore, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) UploadService {
	return &uploadService{
		repo:      repo,
		db:        db,
		store:     store,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

// Create validates the submission, writes the payload artifact to the store
// and persists the upload row. If the database write fails after the artifact
// was stored, the artifact is deleted again so storage never holds orphans.
func (s *uploadService) Create(ctx context.Context, req *validator.UploadCreateRequest, userID string) (*UploadResponse, error) {
	s.logger.Info("Creating upload", "user_id", userID, "filename", req.Filename)

	if errs := s.validator.GetBusinessValidator().ValidateUploadSubmission(req); len(errs) > 0 {
		return nil, errs
	}

	upload := &models.CsvUpload{
		ID:       uuid.NewString(),
		UserID:   userID,
		Filename: req.Filename,
		Status:   models.UploadStatusUploaded,
	}
	if req.CustomFilename != nil {
		upload.CustomFilename = *req.CustomFilename
	}
	if req.FileSize != nil {
		upload.FileSize = *req.FileSize
	}
	if req.ColumnCount != nil {
		upload.ColumnCount = *req.ColumnCount
	}
	if req.RowCount != nil {
		upload.RowCount = *req.RowCount
	}
	if len(req.FileMetadata) > 0 {
		upload.FileMetadata = datatypes.JSON(req.FileMetadata)
	}

	artifactStored := false
	if len(req.TimeSeriesData) > 0 {
		upload.TimeSeriesData = datatypes.JSON(req.TimeSeriesData)
		upload.Status = models.UploadStatusCompleted
		now := time.Now().UTC()
		upload.ProcessedAt = &now

		key := artifactKey(userID, upload.ID, req.Filename)
		url, err := s.store.Put(ctx, key, bytes.NewReader(req.TimeSeriesData))
		if err != nil {
			return nil, NewStorageError("put", err)
		}
		upload.StoragePath = key
		upload.StorageURL = url
		artifactStored = true
	}

	if err := s.repo.Upload().Create(ctx, nil, upload); err != nil {
		if artifactStored {
			// Compensate: the row never landed, remove the artifact.
			if delErr := s.store.Delete(ctx, upload.StoragePath); delErr != nil {
				s.logger.Error("Failed to delete orphaned artifact",
					"upload_id", upload.ID, "key", upload.StoragePath, "error", delErr)
			}
		}
		if repositories.IsForeignKeyError(err) {
			return nil, NewReferentialError("user", userID)
		}
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventUploadCreated, events.UploadEvent{
		UploadID: upload.ID,
		UserID:   userID,
		Filename: upload.Filename,
		Status:   string(upload.Status),
	}))

	s.logger.Info("Upload created successfully", "upload_id", upload.ID)
	return s.buildUploadResponse(upload, true), nil
}

func (s *uploadService) GetByID(ctx context.Context, id, userID string) (*UploadResponse, error) {
	upload, err := s.getOwnedUpload(ctx, id, userID, true)
	if err != nil {
		return nil, err
	}
	return s.buildUploadResponse(upload, true), nil
}

func (s *uploadService) List(ctx context.Context, userID string, filters repositories.UploadFilters) (*models.PaginatedResponse, error) {
	uploads, total, err := s.repo.Upload().ListByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	summaries := make([]*UploadResponse, 0, len(uploads))
	for _, u := range uploads {
		summaries = append(summaries, s.buildUploadResponse(u, false))
	}

	return paginate(summaries, total, filters.Limit, filters.Offset), nil
}

func (s *uploadService) Rename(ctx context.Context, id, userID, customFilename string) error {
	if _, err := s.getOwnedUpload(ctx, id, userID, false); err != nil {
		return err
	}
	if err := s.repo.Upload().UpdateCustomFilename(ctx, nil, id, customFilename); err != nil {
		return fmt.Errorf("failed to rename upload: %w", err)
	}
	return nil
}

func (s *uploadService) UpdateStatus(ctx context.Context, id, userID string, status models.UploadStatus) error {
	if _, err := s.getOwnedUpload(ctx, id, userID, false); err != nil {
		return err
	}

	var processedAt *time.Time
	if status == models.UploadStatusCompleted {
		now := time.Now().UTC()
		processedAt = &now
	}
	if err := s.repo.Upload().UpdateStatus(ctx, nil, id, status, processedAt); err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventUploadStatusChanged, events.UploadEvent{
		UploadID: id,
		UserID:   userID,
		Status:   string(status),
	}))
	return nil
}

// Delete removes the upload row, its anomalies and share grants (via FK
// cascade), then the stored artifact. Storage cleanup failures are logged,
// not surfaced: the row is gone and the grant tokens are already dead.
func (s *uploadService) Delete(ctx context.Context, id, userID string) error {
	upload, err := s.getOwnedUpload(ctx, id, userID, false)
	if err != nil {
		return err
	}

	if err := s.repo.Upload().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	if upload.StoragePath != "" {
		if err := s.store.Delete(ctx, upload.StoragePath); err != nil {
			s.logger.Error("Failed to delete upload artifact",
				"upload_id", id, "key", upload.StoragePath, "error", err)
		}
	}

	s.publish(ctx, events.NewEvent(events.EventUploadDeleted, events.UploadEvent{
		UploadID: id,
		UserID:   userID,
		Filename: upload.Filename,
	}))

	s.logger.Info("Upload deleted", "upload_id", id, "user_id", userID)
	return nil
}

func (s *uploadService) DownloadData(ctx context.Context, id, userID string) (io.ReadCloser, string, error) {
	upload, err := s.getOwnedUpload(ctx, id, userID, false)
	if err != nil {
		return nil, "", err
	}
	return s.openArtifact(ctx, upload)
}

func (s *uploadService) GetStats(ctx context.Context, userID string) (*repositories.UploadStats, error) {
	stats, err := s.repo.Upload().GetUserStats(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload stats: %w", err)
	}
	return stats, nil
}

// ===== ANOMALY ANNOTATIONS =====

func (s *uploadService) AddAnomaly(ctx context.Context, uploadID, userID string, req *validator.AnomalyCreateRequest) (*models.Anomaly, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.getOwnedUpload(ctx, uploadID, userID, false); err != nil {
		return nil, err
	}

	detectedDate, err := time.Parse("2006-01-02", req.DetectedDate)
	if err != nil {
		return nil, validator.ValidationErrors{{
			Field:   "detected_date",
			Message: "must be a date in YYYY-MM-DD format",
			Value:   req.DetectedDate,
			Rule:    "date_format",
		}}
	}

	anomaly := &models.Anomaly{
		UploadID:        uploadID,
		AnomalyType:     req.AnomalyType,
		DetectedDate:    detectedDate,
		WeekBeforeValue: req.WeekBeforeValue,
		CurrentValue:    req.CurrentValue,
		Description:     req.Description,
		Analysis:        req.Analysis,
	}
	if err := s.repo.Anomaly().Create(ctx, nil, anomaly); err != nil {
		if repositories.IsForeignKeyError(err) {
			return nil, NewReferentialError("upload", uploadID)
		}
		return nil, fmt.Errorf("failed to create anomaly: %w", err)
	}

	s.logger.Info("Anomaly recorded", "upload_id", uploadID, "anomaly_id", anomaly.ID, "type", anomaly.AnomalyType)
	return anomaly, nil
}

func (s *uploadService) ListAnomalies(ctx context.Context, uploadID, userID string) ([]*models.Anomaly, error) {
	if _, err := s.getOwnedUpload(ctx, uploadID, userID, false); err != nil {
		return nil, err
	}
	anomalies, err := s.repo.Anomaly().ListByUpload(ctx, nil, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	return anomalies, nil
}

func (s *uploadService) UpdateAnomalyAnalysis(ctx context.Context, uploadID, anomalyID, userID string, analysis *string) error {
	if err := s.checkAnomalyOwnership(ctx, uploadID, anomalyID, userID); err != nil {
		return err
	}
	if err := s.repo.Anomaly().UpdateAnalysis(ctx, nil, anomalyID, analysis); err != nil {
		return fmt.Errorf("failed to update anomaly analysis: %w", err)
	}
	return nil
}

func (s *uploadService) DeleteAnomaly(ctx context.Context, uploadID, anomalyID, userID string) error {
	if err := s.checkAnomalyOwnership(ctx, uploadID, anomalyID, userID); err != nil {
		return err
	}
	if err := s.repo.Anomaly().Delete(ctx, nil, anomalyID); err != nil {
		return fmt.Errorf("failed to delete anomaly: %w", err)
	}
	return nil
}

// ===== HELPERS =====

func artifactKey(userID, uploadID, filename string) string {
	return path.Join("uploads", userID, uploadID, filename+".json")
}

func (s *uploadService) getOwnedUpload(ctx context.Context, id, userID string, withAnomalies bool) (*models.CsvUpload, error) {
	var upload *models.CsvUpload
	var err error
	if withAnomalies {
		upload, err = s.repo.Upload().GetByIDWithAnomalies(ctx, nil, id)
	} else {
		upload, err = s.repo.Upload().GetByID(ctx, nil, id)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	if upload.UserID != userID {
		return nil, NewPermissionError(userID, id, "upload", "access", "not the owner")
	}
	return upload, nil
}

func (s *uploadService) checkAnomalyOwnership(ctx context.Context, uploadID, anomalyID, userID string) error {
	if _, err := s.getOwnedUpload(ctx, uploadID, userID, false); err != nil {
		return err
	}
	anomaly, err := s.repo.Anomaly().GetByID(ctx, nil, anomalyID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAnomalyNotFound
		}
		return fmt.Errorf("failed to get anomaly: %w", err)
	}
	if anomaly.UploadID != uploadID {
		return ErrAnomalyNotFound
	}
	return nil
}

func (s *uploadService) openArtifact(ctx context.Context, upload *models.CsvUpload) (io.ReadCloser, string, error) {
	filename := upload.CustomFilename
	if filename == "" {
		filename = upload.Filename
	}
	filename += ".json"

	if upload.StoragePath != "" {
		rc, err := s.store.Get(ctx, upload.StoragePath)
		if err != nil {
			return nil, "", NewStorageError("get", err)
		}
		return rc, filename, nil
	}

	// No artifact was stored; serve the inline payload.
	if len(upload.TimeSeriesData) > 0 {
		return io.NopCloser(bytes.NewReader(upload.TimeSeriesData)), filename, nil
	}
	return nil, "", NewBusinessRuleError("no_payload", "upload has no time series data to download")
}

func (s *uploadService) buildUploadResponse(upload *models.CsvUpload, includePayload bool) *UploadResponse {
	resp := &UploadResponse{
		ID:             upload.ID,
		Filename:       upload.Filename,
		CustomFilename: upload.CustomFilename,
		StorageURL:     upload.StorageURL,
		FileSize:       upload.FileSize,
		RowCount:       upload.RowCount,
		ColumnCount:    upload.ColumnCount,
		Status:         upload.Status,
		AnomalyCount:   upload.AnomalyCount,
		UploadedAt:     upload.UploadedAt,
		ProcessedAt:    upload.ProcessedAt,
	}
	if len(upload.FileMetadata) > 0 {
		resp.FileMetadata = upload.FileMetadata
	}
	if includePayload {
		if len(upload.TimeSeriesData) > 0 {
			resp.TimeSeriesData = upload.TimeSeriesData
		}
		resp.Anomalies = upload.Anomalies
	}
	return resp
}

func (s *uploadService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

// paginate wraps a result page in the shared pagination envelope.
func paginate(content interface{}, total int64, limit, offset int) *models.PaginatedResponse {
	if limit <= 0 {
		limit = 20
	}
	page := offset / limit
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	count := 0
	if v := reflect.ValueOf(content); v.Kind() == reflect.Slice {
		count = v.Len()
	}

	return &models.PaginatedResponse{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             limit,
		Page:             page,
		NumberOfElements: count,
		Empty:            count == 0,
	}
}
