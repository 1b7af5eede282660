package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/events"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== QUIZ MANAGEMENT =====

func (s *quizService) Create(ctx context.Context, courseID string, req *validator.QuizCreateRequest) (*models.Quiz, error) {
	s.logger.Info("Creating quiz", "course_id", courseID, "title", req.Title)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Course().Exists(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course: %w", err)
	}
	if !exists {
		return nil, NewReferentialError("course", courseID)
	}

	quiz := &models.Quiz{
		CourseID:  courseID,
		Title:     req.Title,
		Questions: datatypes.JSON(req.Questions),
	}
	if err := s.repo.Quiz().Create(ctx, nil, quiz); err != nil {
		if repositories.IsForeignKeyError(err) {
			return nil, NewReferentialError("course", courseID)
		}
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created successfully", "quiz_id", quiz.ID)
	return quiz, nil
}

func (s *quizService) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

func (s *quizService) ListByCourse(ctx context.Context, courseID string) ([]*models.Quiz, error) {
	exists, err := s.repo.Course().Exists(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	quizzes, err := s.repo.Quiz().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *quizService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Quiz().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	s.logger.Info("Quiz deleted", "quiz_id", id)
	return nil
}

// ===== RESULTS =====

func (s *quizService) SubmitResult(ctx context.Context, quizID, userID string, req *validator.QuizResultRequest) (*QuizResultResponse, error) {
	s.logger.Info("Submitting quiz result", "quiz_id", quizID, "user_id", userID)

	if errs := s.validator.GetBusinessValidator().ValidateQuizResult(req); len(errs) > 0 {
		return nil, errs
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewReferentialError("quiz", quizID)
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	result := &models.QuizResult{
		QuizID:  quizID,
		UserID:  userID,
		Score:   req.Score,
		Total:   req.Total,
		Answers: datatypes.JSON(req.Answers),
	}
	if err := s.repo.QuizResult().Create(ctx, nil, result); err != nil {
		if repositories.IsForeignKeyError(err) {
			return nil, NewReferentialError("user", userID)
		}
		return nil, fmt.Errorf("failed to create quiz result: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventQuizCompleted, events.QuizCompletedEvent{
		UserID: userID,
		QuizID: quizID,
		Score:  req.Score,
		Total:  req.Total,
	}))

	return buildQuizResultResponse(result, quiz.Title), nil
}

func (s *quizService) ListResultsByUser(ctx context.Context, userID string) ([]*QuizResultResponse, error) {
	results, err := s.repo.QuizResult().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz results: %w", err)
	}

	out := make([]*QuizResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, buildQuizResultResponse(r, r.Quiz.Title))
	}
	return out, nil
}

// ===== HELPERS =====

func buildQuizResultResponse(result *models.QuizResult, quizTitle string) *QuizResultResponse {
	resp := &QuizResultResponse{
		ID:        result.ID,
		QuizID:    result.QuizID,
		QuizTitle: quizTitle,
		Score:     result.Score,
		Total:     result.Total,
		CreatedAt: result.CreatedAt,
	}
	if result.Total > 0 {
		resp.Percent = float64(result.Score) / float64(result.Total) * 100
	}
	return resp
}

func (s *quizService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
