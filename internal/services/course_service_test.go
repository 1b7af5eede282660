package services

import (
	"context"
	"errors"
	"testing"

	"github.com/learnflow/lms-service/internal/events"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/validator"
)

type courseFixture struct {
	repo      *mockRepository
	publisher *events.MockEventPublisher
	service   CourseService
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	logger := testLogger()
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(logger)
	svc := NewCourseService(repo, nil, publisher, logger, validator.New())
	return &courseFixture{repo: repo, publisher: publisher, service: svc}
}

func (f *courseFixture) seedCourse(t *testing.T) *CourseResponse {
	t.Helper()
	resp, err := f.service.Create(context.Background(), &validator.CourseCreateRequest{
		Title: "Time Series Fundamentals",
		Level: models.LevelBeginner,
		Price: 49,
	})
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return resp
}

func TestCourseService_Create_Validation(t *testing.T) {
	f := newCourseFixture(t)

	if _, err := f.service.Create(context.Background(), &validator.CourseCreateRequest{
		Title: "Bad Level",
		Level: "expert",
	}); err == nil {
		t.Fatal("expected a validation error for an unknown level")
	}

	if _, err := f.service.Create(context.Background(), &validator.CourseCreateRequest{
		Level: models.LevelBeginner,
	}); err == nil {
		t.Fatal("expected a validation error for a missing title")
	}
}

func TestCourseService_Enroll_Duplicate(t *testing.T) {
	f := newCourseFixture(t)
	course := f.seedCourse(t)

	if _, err := f.service.Enroll(context.Background(), "user-1", course.ID); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if _, err := f.service.Enroll(context.Background(), "user-1", course.ID); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("error = %v, want ErrAlreadyEnrolled", err)
	}

	// A second user is unaffected.
	if _, err := f.service.Enroll(context.Background(), "user-2", course.ID); err != nil {
		t.Fatalf("other user enroll: %v", err)
	}
}

func TestCourseService_Enroll_DuplicateKeyRace(t *testing.T) {
	f := newCourseFixture(t)
	course := f.seedCourse(t)

	// A concurrent writer slips in between the pre-check and the insert; the
	// unique index fires and the service reports it as the same condition.
	f.repo.failEnrollmentCreate = repositories.ErrDuplicateKey
	if _, err := f.service.Enroll(context.Background(), "user-1", course.ID); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("error = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestCourseService_Enroll_MissingCourse(t *testing.T) {
	f := newCourseFixture(t)
	if _, err := f.service.Enroll(context.Background(), "user-1", "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("error = %v, want ErrCourseNotFound", err)
	}
}

func TestCourseService_UpdateProgress(t *testing.T) {
	f := newCourseFixture(t)
	course := f.seedCourse(t)
	if _, err := f.service.Enroll(context.Background(), "user-1", course.ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	tests := []struct {
		name          string
		progress      int
		wantErr       bool
		wantCompleted bool
	}{
		{name: "zero", progress: 0},
		{name: "midway", progress: 55},
		{name: "complete", progress: 100, wantCompleted: true},
		{name: "negative", progress: -1, wantErr: true},
		{name: "over", progress: 101, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.service.UpdateProgress(context.Background(), "user-1", course.ID, tt.progress)
			if tt.wantErr {
				var verrs validator.ValidationErrors
				if !errors.As(err, &verrs) {
					t.Fatalf("error = %v, want ValidationErrors", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("update progress: %v", err)
			}
			if resp.Progress != tt.progress {
				t.Fatalf("Progress = %d, want %d", resp.Progress, tt.progress)
			}
			if resp.Completed != tt.wantCompleted {
				t.Fatalf("Completed = %v, want %v", resp.Completed, tt.wantCompleted)
			}
		})
	}
}

func TestCourseService_UpdateProgress_NotEnrolled(t *testing.T) {
	f := newCourseFixture(t)
	course := f.seedCourse(t)
	if _, err := f.service.UpdateProgress(context.Background(), "user-1", course.ID, 10); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("error = %v, want ErrEnrollmentNotFound", err)
	}
}

func TestCourseService_GetByID_Missing(t *testing.T) {
	f := newCourseFixture(t)
	if _, err := f.service.GetByID(context.Background(), "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("error = %v, want ErrCourseNotFound", err)
	}
}
