package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/events"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/validator"
)

type supportService struct {
	repo      repositories.Repository
	db        *gorm.DB
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSupportService(repo repositories.Repository, db *gorm.DB, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) SupportService {
	return &supportService{
		repo:      repo,
		db:        db,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// Submit accepts a message from a signed-in or anonymous visitor. userID is
// nil for the anonymous case.
func (s *supportService) Submit(ctx context.Context, userID *string, req *validator.SupportMessageRequest) (*models.SupportMessage, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	message := &models.SupportMessage{
		UserID:  userID,
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Status:  models.SupportStatusPending,
	}
	if err := s.repo.Support().Create(ctx, nil, message); err != nil {
		return nil, fmt.Errorf("failed to create support message: %w", err)
	}

	s.logger.Info("Support message received", "message_id", message.ID)
	s.publish(ctx, events.NewEvent(events.EventSupportReceived, events.SupportReceivedEvent{
		MessageID: message.ID,
		Email:     message.Email,
	}))

	return message, nil
}

func (s *supportService) List(ctx context.Context, filters repositories.SupportFilters) (*models.PaginatedResponse, error) {
	messages, total, err := s.repo.Support().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list support messages: %w", err)
	}
	return paginate(messages, total, filters.Limit, filters.Offset), nil
}

func (s *supportService) Resolve(ctx context.Context, id string) error {
	if err := s.repo.Support().UpdateStatus(ctx, nil, id, models.SupportStatusResolved); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSupportNotFound
		}
		return fmt.Errorf("failed to resolve support message: %w", err)
	}
	s.logger.Info("Support message resolved", "message_id", id)
	return nil
}

func (s *supportService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
