package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

// Course is immutable after creation; there is no update path.
type Course struct {
	ID          string      `json:"id" gorm:"primaryKey;size:255"`
	Title       string      `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description string      `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Level       CourseLevel `json:"level" gorm:"not null;size:20;index" validate:"required,oneof=beginner intermediate advanced"`
	// Price in the smallest currency unit (cents).
	Price  int     `json:"price" gorm:"not null" validate:"min=0"`
	Rating float64 `json:"rating" gorm:"default:0" validate:"min=0,max=5"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Quizzes     []Quiz             `json:"quizzes,omitempty" gorm:"foreignKey:CourseID"`
	Enrollments []CourseEnrollment `json:"-" gorm:"foreignKey:CourseID"`

	// Computed fields (not stored)
	EnrollmentCount int `json:"enrollment_count" gorm:"-"`
}

type CourseEnrollment struct {
	ID       string `json:"id" gorm:"primaryKey;size:255"`
	UserID   string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_user_course"`
	CourseID string `json:"course_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_user_course"`

	Progress  int  `json:"progress" gorm:"not null;default:0" validate:"min=0,max=100"`
	Completed bool `json:"completed" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User   User   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Course Course `json:"course" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

func (Course) TableName() string {
	return "courses"
}

func (CourseEnrollment) TableName() string {
	return "course_enrollments"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (e *CourseEnrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
