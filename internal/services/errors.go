package services

import (
	"errors"
	"fmt"
)

// ===== SENTINEL ERRORS =====

var (
	ErrUploadNotFound     = errors.New("upload not found")
	ErrAnomalyNotFound    = errors.New("anomaly not found")
	ErrShareNotFound      = errors.New("share link not found")
	ErrShareExpired       = errors.New("share link has expired")
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("user is already enrolled in this course")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrSupportNotFound    = errors.New("support message not found")
	ErrDownloadForbidden  = errors.New("share link does not permit downloads")
)

// ===== TYPED ERRORS =====

// PermissionError indicates the caller may not perform an action on a
// resource they can otherwise see.
type PermissionError struct {
	UserID   string
	Resource string
	ID       string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ID, e.Reason)
}

func NewPermissionError(userID, id, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		ID:       id,
		Action:   action,
		Reason:   reason,
	}
}

// BusinessRuleError indicates a well-formed request that violates a domain
// rule.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// ReferentialError indicates a request naming an entity that does not exist,
// distinct from a lookup miss on the primary resource.
type ReferentialError struct {
	Resource string
	ID       string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("referenced %s %s does not exist", e.Resource, e.ID)
}

func NewReferentialError(resource, id string) *ReferentialError {
	return &ReferentialError{Resource: resource, ID: id}
}

// StorageError wraps artifact store failures so handlers can map them to a
// server-side error class.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
