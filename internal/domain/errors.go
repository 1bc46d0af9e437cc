package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrStoreUnavailable wraps connection and query failures of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// ValidationError rejects an input before or without any write.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreUnavailable wraps cause so that it matches both ErrStoreUnavailable and cause.
func StoreUnavailable(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, cause)
}
