package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardPostgreSQL(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

// GetAdminStats aggregates platform-wide counts for the admin dashboard.
func (r *dashboardRepository) GetAdminStats(ctx context.Context) (*repositories.AdminStats, error) {
	stats := &repositories.AdminStats{}
	db := r.db.WithContext(ctx)

	counts := []struct {
		dest  *int
		query *gorm.DB
		op    string
	}{
		{&stats.TotalUsers, db.Model(&models.User{}), "count users"},
		{&stats.PendingUsers, db.Model(&models.User{}).Where("is_approved = false"), "count pending users"},
		{&stats.TotalCourses, db.Model(&models.Course{}), "count courses"},
		{&stats.TotalUploads, db.Model(&models.CsvUpload{}), "count uploads"},
		{&stats.TotalAnomalies, db.Model(&models.Anomaly{}), "count anomalies"},
		{&stats.TotalShares, db.Model(&models.SharedResult{}), "count shares"},
		{&stats.PendingSupport, db.Model(&models.SupportMessage{}).Where("status = ?", models.SupportStatusPending), "count pending support"},
	}

	for _, c := range counts {
		var n int64
		if err := c.query.Count(&n).Error; err != nil {
			return nil, handleDBError(err, c.op)
		}
		*c.dest = int(n)
	}

	return stats, nil
}

// GetUserStats aggregates one user's activity across uploads, courses and
// quizzes.
func (r *dashboardRepository) GetUserStats(ctx context.Context, userID string) (*repositories.UserStats, error) {
	stats := &repositories.UserStats{}
	db := r.db.WithContext(ctx)

	var uploadCount int64
	if err := db.Model(&models.CsvUpload{}).
		Where("user_id = ?", userID).
		Count(&uploadCount).Error; err != nil {
		return nil, handleDBError(err, "count user uploads")
	}
	stats.UploadCount = int(uploadCount)

	var anomalyCount int64
	if err := db.Model(&models.Anomaly{}).
		Joins("INNER JOIN csv_uploads cu ON cu.id = anomalies.upload_id").
		Where("cu.user_id = ? AND cu.deleted_at IS NULL", userID).
		Count(&anomalyCount).Error; err != nil {
		return nil, handleDBError(err, "count user anomalies")
	}
	stats.AnomalyCount = int(anomalyCount)

	var enrollmentCount int64
	if err := db.Model(&models.CourseEnrollment{}).
		Where("user_id = ?", userID).
		Count(&enrollmentCount).Error; err != nil {
		return nil, handleDBError(err, "count user enrollments")
	}
	stats.EnrollmentCount = int(enrollmentCount)

	var completedCount int64
	if err := db.Model(&models.CourseEnrollment{}).
		Where("user_id = ? AND completed = true", userID).
		Count(&completedCount).Error; err != nil {
		return nil, handleDBError(err, "count completed courses")
	}
	stats.CompletedCourses = int(completedCount)

	type avgRow struct {
		Avg float64
	}
	var row avgRow
	if err := db.Model(&models.QuizResult{}).
		Select("COALESCE(AVG(CASE WHEN total > 0 THEN score::float / total::float END), 0) * 100 as avg").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return nil, handleDBError(err, "average quiz score")
	}
	stats.QuizAverage = row.Avg

	return stats, nil
}
