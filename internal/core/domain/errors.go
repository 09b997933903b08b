package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable indicates the store or broker is not currently reachable.
// It is recoverable: callers are expected to retry or rely on redelivery.
var ErrUnavailable = errors.New("transport unavailable")

// ValidationError reports one or more invalid or missing fields on an entity.
// All missing required fields are collected before the error is raised, so
// clients can correct a submission in one pass.
type ValidationError struct {
	Message     string
	Description string
	Fields      []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
	}
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Description)
	}
	return e.Message
}

// NewValidationError builds a ValidationError with a detail description.
func NewValidationError(message, description string) *ValidationError {
	return &ValidationError{Message: message, Description: description}
}

// NewRequiredFieldsError builds a ValidationError for missing required fields.
func NewRequiredFieldsError(kind string, fields []string) *ValidationError {
	return &ValidationError{
		Message:     "Required fields were not provided...",
		Description: kind + " validation failed: " + strings.Join(fields, ", ") + " is required!",
		Fields:      fields,
	}
}

// ConflictError indicates a uniqueness violation on a natural key.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NotFoundError indicates the target of an update or delete is absent.
// Callers that expect idempotent deletes treat it as success with no effect.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// RepositoryError wraps any storage failure that is not a conflict, a missing
// row or an availability problem. The underlying driver error stays wrapped
// and never crosses the repository boundary on its own.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// MalformedEnvelopeError indicates an event message whose routing fields are
// missing or unreadable. Such a message cannot be retried meaningfully and is
// dropped after logging.
type MalformedEnvelopeError struct {
	Description string
}

func (e *MalformedEnvelopeError) Error() string {
	return "malformed event envelope: " + e.Description
}
