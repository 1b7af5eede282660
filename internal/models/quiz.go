package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quiz struct {
	ID       string `json:"id" gorm:"primaryKey;size:255"`
	CourseID string `json:"course_id" gorm:"not null;size:255;index"`
	Title    string `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	// Questions is an opaque structured payload owned by the client.
	Questions datatypes.JSON `json:"questions" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Course  Course       `json:"-" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
	Results []QuizResult `json:"-" gorm:"foreignKey:QuizID"`
}

type QuizResult struct {
	ID     string `json:"id" gorm:"primaryKey;size:255"`
	QuizID string `json:"quiz_id" gorm:"not null;size:255;index"`
	UserID string `json:"user_id" gorm:"not null;size:255;index"`

	Score int `json:"score" gorm:"not null" validate:"min=0"`
	Total int `json:"total" gorm:"not null" validate:"min=0"`
	// Answers is stored as submitted; grading happens client-side.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz Quiz `json:"-" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (QuizResult) TableName() string {
	return "quiz_results"
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

func (r *QuizResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
