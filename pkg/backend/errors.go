package backend

import (
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyCompleted is returned when a habit already has a log since local midnight.
	ErrAlreadyCompleted = errors.New("Already completed today")
)

// ValidationError reports input the backend refuses to store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}
