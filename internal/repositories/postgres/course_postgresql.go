package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/cache"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
)

type courseRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &courseRepository{db: db, cacheManager: cacheManager}
}

func (r *courseRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== BASIC CRUD OPERATIONS =====

func (r *courseRepository) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(course).Error; err != nil {
		return handleDBError(err, "create course")
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Course, "list:*")
	return nil
}

func (r *courseRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	db := r.getDB(tx)
	var course models.Course

	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&course).Error; err != nil {
		return nil, handleDBError(err, "get course by id")
	}

	var enrollmentCount int64
	if err := db.WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("course_id = ?", id).
		Count(&enrollmentCount).Error; err != nil {
		return nil, handleDBError(err, "count course enrollments")
	}
	course.EnrollmentCount = int(enrollmentCount)

	return &course, nil
}

func (r *courseRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&models.Course{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete course")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete course")
	}
	cache.InvalidateCourseCache(ctx, r.cacheManager, id)
	return nil
}

func (r *courseRepository) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	db := r.getDB(tx)
	var count int64

	if err := db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check course exists")
	}

	return count > 0, nil
}

// ===== QUERY OPERATIONS =====

func (r *courseRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	db := r.getDB(tx)
	var courses []*models.Course
	var total int64

	query := db.WithContext(ctx).Model(&models.Course{})

	if filters.Level != nil {
		query = query.Where("level = ?", *filters.Level)
	}
	if filters.Search != nil {
		search := "%" + *filters.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", search, search)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count courses")
	}

	query = applyPaginationAndSorting(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "created_at", map[string]string{
		"created_at": "created_at",
		"title":      "title",
		"price":      "price",
		"rating":     "rating",
	})

	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, handleDBError(err, "list courses")
	}

	return courses, total, nil
}

// ===== ENROLLMENTS =====

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *enrollmentRepository) Create(ctx context.Context, tx *gorm.DB, enrollment *models.CourseEnrollment) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return handleDBError(err, "create enrollment")
	}
	return nil
}

func (r *enrollmentRepository) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) (*models.CourseEnrollment, error) {
	db := r.getDB(tx)
	var enrollment models.CourseEnrollment

	if err := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		return nil, handleDBError(err, "get enrollment")
	}

	return &enrollment, nil
}

func (r *enrollmentRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.CourseEnrollment, error) {
	db := r.getDB(tx)
	var enrollments []*models.CourseEnrollment

	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Course").
		Order("created_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, handleDBError(err, "list enrollments by user")
	}

	return enrollments, nil
}

func (r *enrollmentRepository) UpdateProgress(ctx context.Context, tx *gorm.DB, id string, progress int, completed bool) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":  progress,
			"completed": completed,
		})
	if result.Error != nil {
		return handleDBError(result.Error, "update enrollment progress")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update enrollment progress")
	}
	return nil
}

func (r *enrollmentRepository) Exists(ctx context.Context, tx *gorm.DB, userID, courseID string) (bool, error) {
	db := r.getDB(tx)
	var count int64

	if err := db.WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, fmt.Sprintf("check enrollment for course %s", courseID))
	}

	return count > 0, nil
}
