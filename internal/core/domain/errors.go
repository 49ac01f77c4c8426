// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the sale transaction path.
var (
	// ErrInsufficientStock is returned when a sale would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConcurrencyConflict is returned when a sale transaction still fails
	// with a serialization error after its retries are exhausted.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// NotFoundError indicates a referenced entity identifier does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given entity and id.
func NewNotFoundError(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError indicates caller-supplied fields failed type, required-field,
// or format checks. No state is mutated when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for field with the given reason.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
