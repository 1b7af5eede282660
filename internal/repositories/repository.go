package repositories

import (
	"context"
	"errors"
)

// Typed errors surfaced by repository implementations. Services translate
// these into their own error taxonomy.
var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrForeignKeyViolated = errors.New("referenced record does not exist")
)

// IsNotFoundError reports whether err indicates a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKeyError reports whether err indicates a unique constraint hit.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsForeignKeyError reports whether err indicates a missing referenced row.
func IsForeignKeyError(err error) bool {
	return errors.Is(err, ErrForeignKeyViolated)
}

// Repository aggregates all entity repositories behind one interface.
type Repository interface {
	User() UserRepository
	Course() CourseRepository
	Enrollment() EnrollmentRepository
	Quiz() QuizRepository
	QuizResult() QuizResultRepository
	Upload() UploadRepository
	Anomaly() AnomalyRepository
	SharedResult() SharedResultRepository
	Support() SupportRepository
	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages the repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
