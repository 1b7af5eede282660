package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Level     *models.CourseLevel `json:"level"`
	Search    *string             `json:"search"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
	SortBy    string              `json:"sort_by"`    // "created_at", "title", "price", "rating"
	SortOrder string              `json:"sort_order"` // "asc", "desc"
}

type UploadFilters struct {
	Status    *models.UploadStatus `json:"status"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "uploaded_at", "filename", "file_size"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type UserFilters struct {
	Role       *models.UserRole `json:"role"`
	IsApproved *bool            `json:"is_approved"`
	Search     *string          `json:"search"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

type SupportFilters struct {
	Status *models.SupportStatus `json:"status"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type UploadStats struct {
	TotalUploads    int                         `json:"total_uploads"`
	TotalAnomalies  int                         `json:"total_anomalies"`
	StatusBreakdown map[models.UploadStatus]int `json:"status_breakdown"`
	TotalBytes      int64                       `json:"total_bytes"`
}

type AdminStats struct {
	TotalUsers     int `json:"total_users"`
	PendingUsers   int `json:"pending_users"`
	TotalCourses   int `json:"total_courses"`
	TotalUploads   int `json:"total_uploads"`
	TotalAnomalies int `json:"total_anomalies"`
	TotalShares    int `json:"total_shares"`
	PendingSupport int `json:"pending_support"`
}

type UserStats struct {
	UploadCount      int     `json:"upload_count"`
	AnomalyCount     int     `json:"anomaly_count"`
	EnrollmentCount  int     `json:"enrollment_count"`
	CompletedCourses int     `json:"completed_courses"`
	QuizAverage      float64 `json:"quiz_average"`
}

// ===== REPOSITORY INTERFACES =====

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	SetApproval(ctx context.Context, tx *gorm.DB, id string, approved bool) error
	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)
}

type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error)
}

type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.CourseEnrollment) error
	GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) (*models.CourseEnrollment, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.CourseEnrollment, error)
	UpdateProgress(ctx context.Context, tx *gorm.DB, id string, progress int, completed bool) error
	Exists(ctx context.Context, tx *gorm.DB, userID, courseID string) (bool, error)
}

type QuizRepository interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Quiz, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type QuizResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.QuizResult, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID string) ([]*models.QuizResult, error)
}

type UploadRepository interface {
	Create(ctx context.Context, tx *gorm.DB, upload *models.CsvUpload) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CsvUpload, error)
	GetByIDWithAnomalies(ctx context.Context, tx *gorm.DB, id string) (*models.CsvUpload, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters UploadFilters) ([]*models.CsvUpload, int64, error)
	Update(ctx context.Context, tx *gorm.DB, upload *models.CsvUpload) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.UploadStatus, processedAt *time.Time) error
	UpdateCustomFilename(ctx context.Context, tx *gorm.DB, id, customFilename string) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	GetUserStats(ctx context.Context, tx *gorm.DB, userID string) (*UploadStats, error)
}

type AnomalyRepository interface {
	Create(ctx context.Context, tx *gorm.DB, anomaly *models.Anomaly) error
	CreateBatch(ctx context.Context, tx *gorm.DB, anomalies []*models.Anomaly) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Anomaly, error)
	ListByUpload(ctx context.Context, tx *gorm.DB, uploadID string) ([]*models.Anomaly, error)
	UpdateAnalysis(ctx context.Context, tx *gorm.DB, id string, analysis *string) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type SharedResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, share *models.SharedResult) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SharedResult, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.SharedResult, error)
	ListByUpload(ctx context.Context, tx *gorm.DB, uploadID string) ([]*models.SharedResult, error)
	ListByCreator(ctx context.Context, tx *gorm.DB, creatorID string) ([]*models.SharedResult, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	// ResolveForAccess looks up a grant by token, increments its view count
	// and appends the access log entry in one row-locked transaction, so
	// concurrent resolutions each count exactly once.
	ResolveForAccess(ctx context.Context, token string, entry models.AccessLogEntry) (*models.SharedResult, error)
}

type SupportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, message *models.SupportMessage) error
	List(ctx context.Context, tx *gorm.DB, filters SupportFilters) ([]*models.SupportMessage, int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.SupportStatus) error
}

type DashboardRepository interface {
	GetAdminStats(ctx context.Context) (*AdminStats, error)
	GetUserStats(ctx context.Context, userID string) (*UserStats, error)
}
