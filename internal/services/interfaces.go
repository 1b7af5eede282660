package services

import (
	"context"
	"io"
	"time"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/validator"
)

// ===== REQUEST / RESPONSE DTOs =====

type UploadResponse struct {
	ID             string              `json:"id"`
	Filename       string              `json:"filename"`
	CustomFilename string              `json:"custom_filename"`
	StorageURL     string              `json:"storage_url"`
	FileSize       int64               `json:"file_size"`
	RowCount       int                 `json:"row_count"`
	ColumnCount    int                 `json:"column_count"`
	Status         models.UploadStatus `json:"status"`
	FileMetadata   interface{}         `json:"file_metadata,omitempty"`
	TimeSeriesData interface{}         `json:"time_series_data,omitempty"`
	AnomalyCount   int                 `json:"anomaly_count"`
	Anomalies      []models.Anomaly    `json:"anomalies,omitempty"`
	UploadedAt     time.Time           `json:"uploaded_at"`
	ProcessedAt    *time.Time          `json:"processed_at"`
}

type ShareResponse struct {
	ID          string                  `json:"id"`
	UploadID    string                  `json:"upload_id"`
	ShareToken  string                  `json:"share_token"`
	ShareURL    string                  `json:"share_url"`
	Permissions models.SharePermission  `json:"permissions"`
	ExpiresAt   *time.Time              `json:"expires_at"`
	ViewCount   int                     `json:"view_count"`
	AccessLogs  []models.AccessLogEntry `json:"access_logs,omitempty"`
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	CreatedAt   time.Time               `json:"created_at"`
}

type CourseResponse struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Level           models.CourseLevel `json:"level"`
	Price           int                `json:"price"`
	Rating          float64            `json:"rating"`
	EnrollmentCount int                `json:"enrollment_count"`
	CreatedAt       time.Time          `json:"created_at"`
}

type EnrollmentResponse struct {
	ID        string          `json:"id"`
	CourseID  string          `json:"course_id"`
	Course    *CourseResponse `json:"course,omitempty"`
	Progress  int             `json:"progress"`
	Completed bool            `json:"completed"`
	CreatedAt time.Time       `json:"created_at"`
}

type QuizResultResponse struct {
	ID        string    `json:"id"`
	QuizID    string    `json:"quiz_id"`
	QuizTitle string    `json:"quiz_title,omitempty"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	Percent   float64   `json:"percent"`
	CreatedAt time.Time `json:"created_at"`
}

type UserProfileResponse struct {
	ID         string          `json:"id"`
	FullName   string          `json:"full_name"`
	Email      *string         `json:"email"`
	Role       models.UserRole `json:"role"`
	IsApproved bool            `json:"is_approved"`
	AvatarURL  string          `json:"avatar_url"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ProfileUpdateRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
}

// ExternalIdentity carries the identity provider claims used to upsert a
// local user row on first sign-in.
type ExternalIdentity struct {
	ExternalID  string
	Name        string
	DisplayName string
	Email       string
	AvatarURL   string
	IsAdmin     bool
}

// ===== SERVICE INTERFACES =====

type UploadService interface {
	Create(ctx context.Context, req *validator.UploadCreateRequest, userID string) (*UploadResponse, error)
	GetByID(ctx context.Context, id, userID string) (*UploadResponse, error)
	List(ctx context.Context, userID string, filters repositories.UploadFilters) (*models.PaginatedResponse, error)
	Rename(ctx context.Context, id, userID, customFilename string) error
	UpdateStatus(ctx context.Context, id, userID string, status models.UploadStatus) error
	Delete(ctx context.Context, id, userID string) error
	DownloadData(ctx context.Context, id, userID string) (io.ReadCloser, string, error)
	GetStats(ctx context.Context, userID string) (*repositories.UploadStats, error)

	// Anomaly annotations
	AddAnomaly(ctx context.Context, uploadID, userID string, req *validator.AnomalyCreateRequest) (*models.Anomaly, error)
	ListAnomalies(ctx context.Context, uploadID, userID string) ([]*models.Anomaly, error)
	UpdateAnomalyAnalysis(ctx context.Context, uploadID, anomalyID, userID string, analysis *string) error
	DeleteAnomaly(ctx context.Context, uploadID, anomalyID, userID string) error
}

type ShareService interface {
	Create(ctx context.Context, uploadID, userID string, req *validator.ShareCreateRequest) (*ShareResponse, error)
	ListForUpload(ctx context.Context, uploadID, userID string) ([]*ShareResponse, error)
	ListByCreator(ctx context.Context, userID string) ([]*ShareResponse, error)
	Revoke(ctx context.Context, shareID, userID string) error

	// Resolve serves an anonymous consumer: it validates the token and
	// expiry, records the access, and returns the scoped projection.
	Resolve(ctx context.Context, token string, entry models.AccessLogEntry) (*models.SharedUploadView, error)

	// ResolveDownload streams the raw artifact when the grant permits it.
	// A permitted download counts as an access like Resolve does.
	ResolveDownload(ctx context.Context, token string, entry models.AccessLogEntry) (io.ReadCloser, string, error)
}

type CourseService interface {
	Create(ctx context.Context, req *validator.CourseCreateRequest) (*CourseResponse, error)
	GetByID(ctx context.Context, id string) (*CourseResponse, error)
	List(ctx context.Context, filters repositories.CourseFilters) (*models.PaginatedResponse, error)
	// Courses are immutable after creation; removal is the only admin
	// mutation.
	Delete(ctx context.Context, id string) error

	Enroll(ctx context.Context, userID, courseID string) (*EnrollmentResponse, error)
	UpdateProgress(ctx context.Context, userID, courseID string, progress int) (*EnrollmentResponse, error)
	ListEnrollments(ctx context.Context, userID string) ([]*EnrollmentResponse, error)
}

type QuizService interface {
	Create(ctx context.Context, courseID string, req *validator.QuizCreateRequest) (*models.Quiz, error)
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	ListByCourse(ctx context.Context, courseID string) ([]*models.Quiz, error)
	Delete(ctx context.Context, id string) error

	SubmitResult(ctx context.Context, quizID, userID string, req *validator.QuizResultRequest) (*QuizResultResponse, error)
	ListResultsByUser(ctx context.Context, userID string) ([]*QuizResultResponse, error)
}

type UserService interface {
	// EnsureUser upserts the local row for an externally authenticated
	// identity and returns it. Repeated sign-ins keep the same row.
	EnsureUser(ctx context.Context, identity *ExternalIdentity) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*UserProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *ProfileUpdateRequest) (*UserProfileResponse, error)
	List(ctx context.Context, filters repositories.UserFilters) (*models.PaginatedResponse, error)
	SetApproval(ctx context.Context, userID string, approved bool) error
}

type SupportService interface {
	Submit(ctx context.Context, userID *string, req *validator.SupportMessageRequest) (*models.SupportMessage, error)
	List(ctx context.Context, filters repositories.SupportFilters) (*models.PaginatedResponse, error)
	Resolve(ctx context.Context, id string) error
}

type ExportService interface {
	// ExportUploadReport renders one upload's shape, payload summary and
	// anomalies as a spreadsheet.
	ExportUploadReport(ctx context.Context, uploadID, userID string) ([]byte, string, error)
}

type DashboardService interface {
	GetAdminStats(ctx context.Context) (*repositories.AdminStats, error)
	GetUserStats(ctx context.Context, userID string) (*repositories.UserStats, error)
}

// ServiceManager wires and owns all service instances.
type ServiceManager interface {
	Upload() UploadService
	Share() ShareService
	Course() CourseService
	Quiz() QuizService
	User() UserService
	Support() SupportService
	Export() ExportService
	Dashboard() DashboardService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
