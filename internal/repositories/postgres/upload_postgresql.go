package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/cache"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

type uploadRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUploadPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UploadRepository {
	return &uploadRepository{db: db, cacheManager: cacheManager}
}

func (r *uploadRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== BASIC CRUD OPERATIONS =====

func (r *uploadRepository) Create(ctx context.Context, tx *gorm.DB, upload *models.CsvUpload) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(upload).Error; err != nil {
		return handleDBError(err, "create upload")
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Upload, fmt.Sprintf("user:%s:*", upload.UserID))
	return nil
}

func (r *uploadRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CsvUpload, error) {
	db := r.getDB(tx)
	var upload models.CsvUpload

	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&upload).Error; err != nil {
		return nil, handleDBError(err, "get upload by id")
	}

	return &upload, nil
}

func (r *uploadRepository) GetByIDWithAnomalies(ctx context.Context, tx *gorm.DB, id string) (*models.CsvUpload, error) {
	db := r.getDB(tx)
	var upload models.CsvUpload

	if err := db.WithContext(ctx).
		Preload("Anomalies", func(db *gorm.DB) *gorm.DB {
			return db.Order("detected_date ASC")
		}).
		Where("id = ?", id).
		First(&upload).Error; err != nil {
		return nil, handleDBError(err, "get upload with anomalies")
	}
	upload.AnomalyCount = len(upload.Anomalies)

	return &upload, nil
}

func (r *uploadRepository) Update(ctx context.Context, tx *gorm.DB, upload *models.CsvUpload) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(upload).Error; err != nil {
		return handleDBError(err, "update upload")
	}
	cache.InvalidateUploadCache(ctx, r.cacheManager, upload.ID, upload.UserID)
	return nil
}

func (r *uploadRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.UploadStatus, processedAt *time.Time) error {
	db := r.getDB(tx)
	updates := map[string]interface{}{"status": status}
	if processedAt != nil {
		updates["processed_at"] = processedAt
	}

	result := db.WithContext(ctx).
		Model(&models.CsvUpload{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return handleDBError(result.Error, "update upload status")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update upload status")
	}
	cache.SafeDelete(ctx, r.cacheManager.Upload, fmt.Sprintf("id:%s", id), fmt.Sprintf("details:%s", id))
	return nil
}

func (r *uploadRepository) UpdateCustomFilename(ctx context.Context, tx *gorm.DB, id, customFilename string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.CsvUpload{}).
		Where("id = ?", id).
		Update("custom_filename", customFilename)
	if result.Error != nil {
		return handleDBError(result.Error, "update upload custom filename")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update upload custom filename")
	}
	cache.SafeDelete(ctx, r.cacheManager.Upload, fmt.Sprintf("id:%s", id), fmt.Sprintf("details:%s", id))
	return nil
}

// Delete removes the upload row. Anomalies and share grants go with it via
// the FK cascade, so a revoked upload can never leave dangling share tokens.
func (r *uploadRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.CsvUpload{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete upload")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete upload")
	}
	return nil
}

// ===== QUERY OPERATIONS =====

func (r *uploadRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.UploadFilters) ([]*models.CsvUpload, int64, error) {
	db := r.getDB(tx)
	var uploads []*models.CsvUpload
	var total int64

	query := db.WithContext(ctx).
		Model(&models.CsvUpload{}).
		Where("user_id = ?", userID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("uploaded_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("uploaded_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count uploads")
	}

	query = applyPaginationAndSorting(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "uploaded_at", map[string]string{
		"uploaded_at": "uploaded_at",
		"filename":    "filename",
		"file_size":   "file_size",
	})

	if err := query.Find(&uploads).Error; err != nil {
		return nil, 0, handleDBError(err, "list uploads by user")
	}

	return uploads, total, nil
}

// ===== STATISTICS =====

func (r *uploadRepository) GetUserStats(ctx context.Context, tx *gorm.DB, userID string) (*repositories.UploadStats, error) {
	db := r.getDB(tx)
	stats := &repositories.UploadStats{
		StatusBreakdown: make(map[models.UploadStatus]int),
	}

	type statusCount struct {
		Status models.UploadStatus
		Count  int
		Bytes  int64
	}
	var counts []statusCount
	if err := db.WithContext(ctx).
		Model(&models.CsvUpload{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(file_size), 0) as bytes").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, handleDBError(err, "count uploads by status")
	}

	for _, sc := range counts {
		stats.StatusBreakdown[sc.Status] = sc.Count
		stats.TotalUploads += sc.Count
		stats.TotalBytes += sc.Bytes
	}

	var anomalyCount int64
	if err := db.WithContext(ctx).
		Model(&models.Anomaly{}).
		Joins("INNER JOIN csv_uploads cu ON cu.id = anomalies.upload_id").
		Where("cu.user_id = ? AND cu.deleted_at IS NULL", userID).
		Count(&anomalyCount).Error; err != nil {
		return nil, handleDBError(err, "count user anomalies")
	}
	stats.TotalAnomalies = int(anomalyCount)

	return stats, nil
}
