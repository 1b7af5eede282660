package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

type sharedResultRepository struct {
	db *gorm.DB
}

func NewSharedResultPostgreSQL(db *gorm.DB) repositories.SharedResultRepository {
	return &sharedResultRepository{db: db}
}

func (r *sharedResultRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== BASIC CRUD OPERATIONS =====

func (r *sharedResultRepository) Create(ctx context.Context, tx *gorm.DB, share *models.SharedResult) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(share).Error; err != nil {
		return handleDBError(err, "create shared result")
	}
	return nil
}

func (r *sharedResultRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.SharedResult, error) {
	db := r.getDB(tx)
	var share models.SharedResult

	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&share).Error; err != nil {
		return nil, handleDBError(err, "get shared result by id")
	}

	return &share, nil
}

func (r *sharedResultRepository) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.SharedResult, error) {
	db := r.getDB(tx)
	var share models.SharedResult

	if err := db.WithContext(ctx).
		Where("share_token = ?", token).
		First(&share).Error; err != nil {
		return nil, handleDBError(err, "get shared result by token")
	}

	return &share, nil
}

func (r *sharedResultRepository) ListByUpload(ctx context.Context, tx *gorm.DB, uploadID string) ([]*models.SharedResult, error) {
	db := r.getDB(tx)
	var shares []*models.SharedResult

	if err := db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Order("created_at DESC").
		Find(&shares).Error; err != nil {
		return nil, handleDBError(err, "list shared results by upload")
	}

	return shares, nil
}

func (r *sharedResultRepository) ListByCreator(ctx context.Context, tx *gorm.DB, creatorID string) ([]*models.SharedResult, error) {
	db := r.getDB(tx)
	var shares []*models.SharedResult

	if err := db.WithContext(ctx).
		Where("created_by = ?", creatorID).
		Order("created_at DESC").
		Find(&shares).Error; err != nil {
		return nil, handleDBError(err, "list shared results by creator")
	}

	return shares, nil
}

func (r *sharedResultRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&models.SharedResult{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete shared result")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete shared result")
	}
	return nil
}

// ===== ACCESS RESOLUTION =====

// ResolveForAccess records one access against the grant. The row is locked
// for the duration of the transaction so concurrent resolutions of the same
// token serialize: each increments the view count exactly once and appends
// exactly one access log entry.
func (r *sharedResultRepository) ResolveForAccess(ctx context.Context, token string, entry models.AccessLogEntry) (*models.SharedResult, error) {
	var resolved *models.SharedResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var share models.SharedResult
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("share_token = ?", token).
			First(&share).Error; err != nil {
			return handleDBError(err, "lock shared result by token")
		}

		logs, err := share.DecodedAccessLogs()
		if err != nil {
			return fmt.Errorf("decode access logs: %w", err)
		}
		logs = append(logs, entry)
		encoded, err := json.Marshal(logs)
		if err != nil {
			return fmt.Errorf("encode access logs: %w", err)
		}

		share.ViewCount++
		share.AccessLogs = datatypes.JSON(encoded)

		if err := tx.Model(&models.SharedResult{}).
			Where("id = ?", share.ID).
			Updates(map[string]interface{}{
				"view_count":  share.ViewCount,
				"access_logs": share.AccessLogs,
			}).Error; err != nil {
			return handleDBError(err, "record shared result access")
		}

		resolved = &share
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resolved, nil
}
