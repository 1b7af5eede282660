package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID         string   `json:"id" gorm:"primaryKey;size:255"`
	ExternalID string   `json:"external_id" gorm:"uniqueIndex;size:255"`
	FullName   string   `json:"full_name" gorm:"size:100"`
	Email      *string  `json:"email" gorm:"uniqueIndex;size:255"`
	Role       UserRole `json:"role" gorm:"not null;default:user;size:20" validate:"omitempty,oneof=user admin"`
	IsApproved bool     `json:"is_approved" gorm:"not null;default:false"`

	// Profile info
	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Enrollments []CourseEnrollment `json:"-" gorm:"foreignKey:UserID"`
	Uploads     []CsvUpload        `json:"-" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a server-side id when the caller did not supply one
// (first-sign-in upsert keeps the externally issued identity id).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
