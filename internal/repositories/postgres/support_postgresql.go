package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

type supportRepository struct {
	db *gorm.DB
}

func NewSupportPostgreSQL(db *gorm.DB) repositories.SupportRepository {
	return &supportRepository{db: db}
}

func (r *supportRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *supportRepository) Create(ctx context.Context, tx *gorm.DB, message *models.SupportMessage) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(message).Error; err != nil {
		return handleDBError(err, "create support message")
	}
	return nil
}

func (r *supportRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.SupportFilters) ([]*models.SupportMessage, int64, error) {
	db := r.getDB(tx)
	var messages []*models.SupportMessage
	var total int64

	query := db.WithContext(ctx).Model(&models.SupportMessage{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count support messages")
	}

	query = applyPaginationAndSorting(query, filters.Limit, filters.Offset, "", "", "created_at", map[string]string{
		"created_at": "created_at",
	})

	if err := query.Find(&messages).Error; err != nil {
		return nil, 0, handleDBError(err, "list support messages")
	}

	return messages, total, nil
}

func (r *supportRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.SupportStatus) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.SupportMessage{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return handleDBError(result.Error, "update support message status")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update support message status")
	}
	return nil
}
