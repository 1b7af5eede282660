package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/events"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/storage"
	"github.com/learnflow/lms-service/internal/validator"
)

type shareService struct {
	repo      repositories.Repository
	db        *gorm.DB
	store     storage.ArtifactStore
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	// now is swappable in tests.
	now func() time.Time
}

func NewShareService(repo repositories.Repository, db *gorm.DB, store storage.ArtifactStore, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) ShareService {
	return &shareService{
		repo:      repo,
		db:        db,
		store:     store,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ===== GRANT MANAGEMENT =====

func (s *shareService) Create(ctx context.Context, uploadID, userID string, req *validator.ShareCreateRequest) (*ShareResponse, error) {
	s.logger.Info("Creating share link", "upload_id", uploadID, "user_id", userID)

	if errs := s.validator.GetBusinessValidator().ValidateShareCreation(req); len(errs) > 0 {
		return nil, errs
	}

	upload, err := s.repo.Upload().GetByID(ctx, nil, uploadID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	if upload.UserID != userID {
		return nil, NewPermissionError(userID, uploadID, "upload", "share", "not the owner")
	}

	token, err := generateShareToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}

	createdAt := s.now()
	share := &models.SharedResult{
		UploadID:    uploadID,
		CreatedBy:   userID,
		ShareToken:  token,
		Permissions: req.Permissions,
		ExpiresAt:   models.ExpiresAtFor(req.ExpirationOption, createdAt),
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.repo.SharedResult().Create(ctx, nil, share); err != nil {
		if repositories.IsForeignKeyError(err) {
			return nil, NewReferentialError("upload", uploadID)
		}
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventShareCreated, events.ShareEvent{
		ShareID:     share.ID,
		UploadID:    uploadID,
		Permissions: string(share.Permissions),
	}))

	s.logger.Info("Share link created", "share_id", share.ID, "upload_id", uploadID)
	return s.buildShareResponse(share, true), nil
}

func (s *shareService) ListForUpload(ctx context.Context, uploadID, userID string) ([]*ShareResponse, error) {
	upload, err := s.repo.Upload().GetByID(ctx, nil, uploadID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	if upload.UserID != userID {
		return nil, NewPermissionError(userID, uploadID, "upload", "list shares of", "not the owner")
	}

	shares, err := s.repo.SharedResult().ListByUpload(ctx, nil, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	return s.buildShareResponses(shares), nil
}

func (s *shareService) ListByCreator(ctx context.Context, userID string) ([]*ShareResponse, error) {
	shares, err := s.repo.SharedResult().ListByCreator(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	return s.buildShareResponses(shares), nil
}

func (s *shareService) Revoke(ctx context.Context, shareID, userID string) error {
	share, err := s.repo.SharedResult().GetByID(ctx, nil, shareID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrShareNotFound
		}
		return fmt.Errorf("failed to get share: %w", err)
	}
	if share.CreatedBy != userID {
		return NewPermissionError(userID, shareID, "share", "revoke", "not the creator")
	}

	if err := s.repo.SharedResult().Delete(ctx, nil, shareID); err != nil {
		return fmt.Errorf("failed to revoke share: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventShareRevoked, events.ShareEvent{
		ShareID:  shareID,
		UploadID: share.UploadID,
	}))

	s.logger.Info("Share link revoked", "share_id", shareID, "user_id", userID)
	return nil
}

// ===== ANONYMOUS RESOLUTION =====

// Resolve validates the token and expiry before any state changes: an
// expired or unknown token never counts as a view.
func (s *shareService) Resolve(ctx context.Context, token string, entry models.AccessLogEntry) (*models.SharedUploadView, error) {
	share, err := s.repo.SharedResult().GetByToken(ctx, nil, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to resolve share token: %w", err)
	}
	if share.IsExpired(s.now()) {
		return nil, ErrShareExpired
	}

	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = s.now()
	}
	share, err = s.repo.SharedResult().ResolveForAccess(ctx, token, entry)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to record share access: %w", err)
	}

	upload, err := s.repo.Upload().GetByIDWithAnomalies(ctx, nil, share.UploadID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to load shared upload: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventShareAccessed, events.ShareEvent{
		ShareID:     share.ID,
		UploadID:    share.UploadID,
		Permissions: string(share.Permissions),
		ViewCount:   share.ViewCount,
	}))

	return buildSharedUploadView(share, upload), nil
}

// ResolveDownload applies the same gate ordering as Resolve: expiry and
// permission are checked first, so a rejected attempt never counts. A
// permitted download is recorded in the view count and access log.
func (s *shareService) ResolveDownload(ctx context.Context, token string, entry models.AccessLogEntry) (io.ReadCloser, string, error) {
	share, err := s.repo.SharedResult().GetByToken(ctx, nil, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrShareNotFound
		}
		return nil, "", fmt.Errorf("failed to resolve share token: %w", err)
	}
	if share.IsExpired(s.now()) {
		return nil, "", ErrShareExpired
	}
	if share.Permissions != models.PermissionViewDownload {
		return nil, "", ErrDownloadForbidden
	}

	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = s.now()
	}
	share, err = s.repo.SharedResult().ResolveForAccess(ctx, token, entry)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrShareNotFound
		}
		return nil, "", fmt.Errorf("failed to record share access: %w", err)
	}

	upload, err := s.repo.Upload().GetByID(ctx, nil, share.UploadID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrShareNotFound
		}
		return nil, "", fmt.Errorf("failed to load shared upload: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventShareAccessed, events.ShareEvent{
		ShareID:     share.ID,
		UploadID:    share.UploadID,
		Permissions: string(share.Permissions),
		ViewCount:   share.ViewCount,
	}))

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
	if len(upload.TimeSeriesData) > 0 {
		return io.NopCloser(bytes.NewReader(upload.TimeSeriesData)), filename, nil
	}
	return nil, "", NewBusinessRuleError("no_payload", "shared upload has no time series data to download")
}

// ===== HELPERS =====

// generateShareToken returns a 32-byte cryptographically random token in
// URL-safe base64, so links are unguessable and need no escaping.
func generateShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *shareService) buildShareResponses(shares []*models.SharedResult) []*ShareResponse {
	out := make([]*ShareResponse, 0, len(shares))
	for _, share := range shares {
		out = append(out, s.buildShareResponse(share, false))
	}
	return out
}

func (s *shareService) buildShareResponse(share *models.SharedResult, withLogs bool) *ShareResponse {
	resp := &ShareResponse{
		ID:          share.ID,
		UploadID:    share.UploadID,
		ShareToken:  share.ShareToken,
		ShareURL:    "/shared/" + share.ShareToken,
		Permissions: share.Permissions,
		ExpiresAt:   share.ExpiresAt,
		ViewCount:   share.ViewCount,
		Title:       share.Title,
		Description: share.Description,
		CreatedAt:   share.CreatedAt,
	}
	if withLogs {
		if logs, err := share.DecodedAccessLogs(); err == nil {
			resp.AccessLogs = logs
		}
	}
	return resp
}

// buildSharedUploadView projects an upload through a grant's scope: results
// and shape only, never storage internals or the owner's identity.
func buildSharedUploadView(share *models.SharedResult, upload *models.CsvUpload) *models.SharedUploadView {
	view := &models.SharedUploadView{
		Title:          share.Title,
		Description:    share.Description,
		Permissions:    share.Permissions,
		Filename:       upload.Filename,
		CustomFilename: upload.CustomFilename,
		RowCount:       upload.RowCount,
		ColumnCount:    upload.ColumnCount,
		Status:         upload.Status,
		UploadedAt:     upload.UploadedAt,
		ProcessedAt:    upload.ProcessedAt,
		Anomalies:      upload.Anomalies,
	}
	if len(upload.TimeSeriesData) > 0 {
		view.TimeSeriesData = upload.TimeSeriesData
	}
	if view.Anomalies == nil {
		view.Anomalies = []models.Anomaly{}
	}
	return view
}

func (s *shareService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
