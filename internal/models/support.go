package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupportStatus string

const (
	SupportStatusPending  SupportStatus = "pending"
	SupportStatusResolved SupportStatus = "resolved"
)

type SupportMessage struct {
	ID     string  `json:"id" gorm:"primaryKey;size:255"`
	UserID *string `json:"user_id" gorm:"size:255;index"`

	Name    string        `json:"name" gorm:"size:100" validate:"omitempty,max=100"`
	Email   string        `json:"email" gorm:"not null;size:255" validate:"required,email"`
	Message string        `json:"message" gorm:"not null;type:text" validate:"required,min=1,max=5000"`
	Status  SupportStatus `json:"status" gorm:"not null;default:pending;size:20;index" validate:"omitempty,oneof=pending resolved"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SupportMessage) TableName() string {
	return "support_messages"
}

func (m *SupportMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
