package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	eventSource  = "lms-service"
	eventVersion = "1.0"
)

// Event types published by this service.
const (
	EventUploadCreated       = "upload.created"
	EventUploadStatusChanged = "upload.status_changed"
	EventUploadDeleted       = "upload.deleted"
	EventShareCreated        = "share.created"
	EventShareAccessed       = "share.accessed"
	EventShareRevoked        = "share.revoked"
	EventCourseEnrolled      = "course.enrolled"
	EventQuizCompleted       = "quiz.completed"
	EventUserRegistered      = "user.registered"
	EventSupportReceived     = "support.received"
)

// Event is the envelope every published message carries.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with a fresh id and timestamp.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ===== EVENT PAYLOADS =====

type UploadEvent struct {
	UploadID string `json:"upload_id"`
	UserID   string `json:"user_id"`
	Filename string `json:"filename"`
	Status   string `json:"status,omitempty"`
}

type ShareEvent struct {
	ShareID     string `json:"share_id"`
	UploadID    string `json:"upload_id"`
	Permissions string `json:"permissions"`
	ViewCount   int    `json:"view_count,omitempty"`
}

type EnrollmentEvent struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

type QuizCompletedEvent struct {
	UserID string `json:"user_id"`
	QuizID string `json:"quiz_id"`
	Score  int    `json:"score"`
	Total  int    `json:"total"`
}

type UserRegisteredEvent struct {
	UserID     string `json:"user_id"`
	ExternalID string `json:"external_id"`
}

type SupportReceivedEvent struct {
	MessageID string `json:"message_id"`
	Email     string `json:"email"`
}
