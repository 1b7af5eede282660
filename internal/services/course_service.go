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

type courseService struct {
	repo      repositories.Repository
	db        *gorm.DB
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCourseService(repo repositories.Repository, db *gorm.DB, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		db:        db,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== CATALOG =====

func (s *courseService) Create(ctx context.Context, req *validator.CourseCreateRequest) (*CourseResponse, error) {
	s.logger.Info("Creating course", "title", req.Title)

	if errs := s.validator.GetBusinessValidator().ValidateCourseCreation(req); len(errs) > 0 {
		return nil, errs
	}

	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Level:       req.Level,
		Price:       req.Price,
		Rating:      req.Rating,
	}
	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created successfully", "course_id", course.ID)
	return buildCourseResponse(course), nil
}

func (s *courseService) GetByID(ctx context.Context, id string) (*CourseResponse, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return buildCourseResponse(course), nil
}

func (s *courseService) List(ctx context.Context, filters repositories.CourseFilters) (*models.PaginatedResponse, error) {
	courses, total, err := s.repo.Course().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	out := make([]*CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, buildCourseResponse(c))
	}
	return paginate(out, total, filters.Limit, filters.Offset), nil
}

func (s *courseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Course().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("failed to delete course: %w", err)
	}
	s.logger.Info("Course deleted", "course_id", id)
	return nil
}

// ===== ENROLLMENTS =====

// Enroll creates the user-course link. The composite unique index backs up
// the pre-check, so a concurrent duplicate enrolls exactly once.
func (s *courseService) Enroll(ctx context.Context, userID, courseID string) (*EnrollmentResponse, error) {
	s.logger.Info("Enrolling user in course", "user_id", userID, "course_id", courseID)

	exists, err := s.repo.Course().Exists(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	enrolled, err := s.repo.Enrollment().Exists(ctx, nil, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	enrollment := &models.CourseEnrollment{
		UserID:   userID,
		CourseID: courseID,
	}
	if err := s.repo.Enrollment().Create(ctx, nil, enrollment); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrAlreadyEnrolled
		}
		if repositories.IsForeignKeyError(err) {
			return nil, NewReferentialError("course", courseID)
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventCourseEnrolled, events.EnrollmentEvent{
		UserID:   userID,
		CourseID: courseID,
	}))

	return buildEnrollmentResponse(enrollment), nil
}

func (s *courseService) UpdateProgress(ctx context.Context, userID, courseID string, progress int) (*EnrollmentResponse, error) {
	if progress < 0 || progress > 100 {
		return nil, validator.ValidationErrors{{
			Field:   "progress",
			Message: "must be between 0 and 100",
			Value:   progress,
			Rule:    "progress_range",
		}}
	}

	enrollment, err := s.repo.Enrollment().GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	completed := progress == 100
	if err := s.repo.Enrollment().UpdateProgress(ctx, nil, enrollment.ID, progress, completed); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	enrollment.Progress = progress
	enrollment.Completed = completed
	return buildEnrollmentResponse(enrollment), nil
}

func (s *courseService) ListEnrollments(ctx context.Context, userID string) ([]*EnrollmentResponse, error) {
	enrollments, err := s.repo.Enrollment().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	out := make([]*EnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, buildEnrollmentResponse(e))
	}
	return out, nil
}

// ===== HELPERS =====

func buildCourseResponse(course *models.Course) *CourseResponse {
	return &CourseResponse{
		ID:              course.ID,
		Title:           course.Title,
		Description:     course.Description,
		Level:           course.Level,
		Price:           course.Price,
		Rating:          course.Rating,
		EnrollmentCount: course.EnrollmentCount,
		CreatedAt:       course.CreatedAt,
	}
}

func buildEnrollmentResponse(enrollment *models.CourseEnrollment) *EnrollmentResponse {
	resp := &EnrollmentResponse{
		ID:        enrollment.ID,
		CourseID:  enrollment.CourseID,
		Progress:  enrollment.Progress,
		Completed: enrollment.Completed,
		CreatedAt: enrollment.CreatedAt,
	}
	if enrollment.Course.ID != "" {
		resp.Course = buildCourseResponse(&enrollment.Course)
	}
	return resp
}

func (s *courseService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
