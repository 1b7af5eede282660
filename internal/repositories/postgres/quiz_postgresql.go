package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

type quizRepository struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *quizRepository) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(quiz).Error; err != nil {
		return handleDBError(err, "create quiz")
	}
	return nil
}

func (r *quizRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	db := r.getDB(tx)
	var quiz models.Quiz

	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&quiz).Error; err != nil {
		return nil, handleDBError(err, "get quiz by id")
	}

	return &quiz, nil
}

func (r *quizRepository) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Quiz, error) {
	db := r.getDB(tx)
	var quizzes []*models.Quiz

	if err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&quizzes).Error; err != nil {
		return nil, handleDBError(err, "list quizzes by course")
	}

	return quizzes, nil
}

func (r *quizRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&models.Quiz{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete quiz")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete quiz")
	}
	return nil
}

// ===== QUIZ RESULTS =====

type quizResultRepository struct {
	db *gorm.DB
}

func NewQuizResultPostgreSQL(db *gorm.DB) repositories.QuizResultRepository {
	return &quizResultRepository{db: db}
}

func (r *quizResultRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *quizResultRepository) Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(result).Error; err != nil {
		return handleDBError(err, "create quiz result")
	}
	return nil
}

func (r *quizResultRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.QuizResult, error) {
	db := r.getDB(tx)
	var results []*models.QuizResult

	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Quiz").
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, handleDBError(err, "list quiz results by user")
	}

	return results, nil
}

func (r *quizResultRepository) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID string) ([]*models.QuizResult, error) {
	db := r.getDB(tx)
	var results []*models.QuizResult

	if err := db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, handleDBError(err, "list quiz results by quiz")
	}

	return results, nil
}
