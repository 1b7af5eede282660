package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SharePermission string

const (
	PermissionViewOnly     SharePermission = "view_only"
	PermissionViewDownload SharePermission = "view_download"
)

type ExpirationOption string

const (
	Expire24Hours ExpirationOption = "24h"
	Expire7Days   ExpirationOption = "7d"
	Expire30Days  ExpirationOption = "30d"
	ExpireNever   ExpirationOption = "never"
)

// AccessLogEntry records one resolution attempt against a share link.
type AccessLogEntry struct {
	AccessedAt time.Time `json:"accessed_at"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// SharedResult grants token-gated, read-only access to one upload's results,
// independent of the owner's session.
type SharedResult struct {
	ID       string `json:"id" gorm:"primaryKey;size:255"`
	UploadID string `json:"upload_id" gorm:"not null;size:255;index"`
	// CreatedBy is the owning user who minted the grant.
	CreatedBy string `json:"created_by" gorm:"not null;size:255;index"`

	ShareToken  string          `json:"share_token" gorm:"uniqueIndex;not null;size:255"`
	Permissions SharePermission `json:"permissions" gorm:"not null;size:20" validate:"required,oneof=view_only view_download"`

	// ExpiresAt nil means the grant never expires.
	ExpiresAt *time.Time `json:"expires_at"`

	ViewCount  int            `json:"view_count" gorm:"not null;default:0"`
	AccessLogs datatypes.JSON `json:"access_logs" gorm:"type:jsonb"`

	Title       *string `json:"title" gorm:"size:200" validate:"omitempty,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Upload  CsvUpload `json:"-" gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"`
	Creator User      `json:"-" gorm:"foreignKey:CreatedBy;constraint:OnDelete:CASCADE"`
}

func (SharedResult) TableName() string {
	return "shared_results"
}

func (s *SharedResult) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if len(s.AccessLogs) == 0 {
		s.AccessLogs = datatypes.JSON([]byte("[]"))
	}
	return nil
}

// IsExpired reports whether the grant is past its expiry at the given time.
// A nil ExpiresAt never expires.
func (s *SharedResult) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// DecodedAccessLogs unmarshals the stored access log sequence.
func (s *SharedResult) DecodedAccessLogs() ([]AccessLogEntry, error) {
	if len(s.AccessLogs) == 0 {
		return nil, nil
	}
	var entries []AccessLogEntry
	if err := json.Unmarshal(s.AccessLogs, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExpiresAtFor maps an expiration option to a concrete timestamp relative to
// the creation time. ExpireNever yields nil.
func ExpiresAtFor(option ExpirationOption, createdAt time.Time) *time.Time {
	var d time.Duration
	switch option {
	case Expire24Hours:
		d = 24 * time.Hour
	case Expire7Days:
		d = 7 * 24 * time.Hour
	case Expire30Days:
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	t := createdAt.Add(d)
	return &t
}
