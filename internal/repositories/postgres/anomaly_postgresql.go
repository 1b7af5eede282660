package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

type anomalyRepository struct {
	db *gorm.DB
}

func NewAnomalyPostgreSQL(db *gorm.DB) repositories.AnomalyRepository {
	return &anomalyRepository{db: db}
}

func (r *anomalyRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *anomalyRepository) Create(ctx context.Context, tx *gorm.DB, anomaly *models.Anomaly) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(anomaly).Error; err != nil {
		return handleDBError(err, "create anomaly")
	}
	return nil
}

func (r *anomalyRepository) CreateBatch(ctx context.Context, tx *gorm.DB, anomalies []*models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	db := r.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(anomalies, 100).Error; err != nil {
		return handleDBError(err, "create anomalies batch")
	}
	return nil
}

func (r *anomalyRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Anomaly, error) {
	db := r.getDB(tx)
	var anomaly models.Anomaly

	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&anomaly).Error; err != nil {
		return nil, handleDBError(err, "get anomaly by id")
	}

	return &anomaly, nil
}

func (r *anomalyRepository) ListByUpload(ctx context.Context, tx *gorm.DB, uploadID string) ([]*models.Anomaly, error) {
	db := r.getDB(tx)
	var anomalies []*models.Anomaly

	if err := db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Order("detected_date ASC").
		Find(&anomalies).Error; err != nil {
		return nil, handleDBError(err, "list anomalies by upload")
	}

	return anomalies, nil
}

func (r *anomalyRepository) UpdateAnalysis(ctx context.Context, tx *gorm.DB, id string, analysis *string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Anomaly{}).
		Where("id = ?", id).
		Update("analysis", analysis)
	if result.Error != nil {
		return handleDBError(result.Error, "update anomaly analysis")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update anomaly analysis")
	}
	return nil
}

func (r *anomalyRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&models.Anomaly{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete anomaly")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete anomaly")
	}
	return nil
}
