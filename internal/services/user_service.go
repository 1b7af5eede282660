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

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, db *gorm.DB, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== IDENTITY =====

// EnsureUser looks up the local row for an external identity and creates it on
// first sign-in. A concurrent first sign-in loses the insert race and falls
// back to the row the winner created.
func (s *userService) EnsureUser(ctx context.Context, identity *ExternalIdentity) (*models.User, error) {
	user, err := s.repo.User().GetByExternalID(ctx, nil, identity.ExternalID)
	if err == nil {
		return user, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	fullName := identity.DisplayName
	if fullName == "" {
		fullName = identity.Name
	}
	role := models.RoleUser
	if identity.IsAdmin {
		role = models.RoleAdmin
	}

	user = &models.User{
		ExternalID: identity.ExternalID,
		FullName:   fullName,
		Role:       role,
		IsApproved: identity.IsAdmin,
	}
	if identity.Email != "" {
		email := identity.Email
		user.Email = &email
	}
	if identity.AvatarURL != "" {
		avatar := identity.AvatarURL
		user.AvatarURL = &avatar
	}

	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return s.repo.User().GetByExternalID(ctx, nil, identity.ExternalID)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "external_id", identity.ExternalID)
	s.publish(ctx, events.NewEvent(events.EventUserRegistered, events.UserRegisteredEvent{
		UserID:     user.ID,
		ExternalID: identity.ExternalID,
	}))

	return user, nil
}

// ===== PROFILES =====

func (s *userService) GetProfile(ctx context.Context, userID string) (*UserProfileResponse, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return buildUserProfileResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *ProfileUpdateRequest) (*UserProfileResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return buildUserProfileResponse(user), nil
}

// ===== ADMINISTRATION =====

func (s *userService) List(ctx context.Context, filters repositories.UserFilters) (*models.PaginatedResponse, error) {
	users, total, err := s.repo.User().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*UserProfileResponse, 0, len(users))
	for _, u := range users {
		out = append(out, buildUserProfileResponse(u))
	}
	return paginate(out, total, filters.Limit, filters.Offset), nil
}

func (s *userService) SetApproval(ctx context.Context, userID string, approved bool) error {
	if err := s.repo.User().SetApproval(ctx, nil, userID, approved); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to set approval: %w", err)
	}
	s.logger.Info("User approval changed", "user_id", userID, "approved", approved)
	return nil
}

// ===== HELPERS =====

func buildUserProfileResponse(user *models.User) *UserProfileResponse {
	resp := &UserProfileResponse{
		ID:         user.ID,
		FullName:   user.FullName,
		Email:      user.Email,
		Role:       user.Role,
		IsApproved: user.IsApproved,
		CreatedAt:  user.CreatedAt,
	}
	if user.AvatarURL != nil {
		resp.AvatarURL = *user.AvatarURL
	}
	return resp
}

func (s *userService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
