package ynab

import (
	"errors"
	"fmt"

	internalTypes "github.com/eshaffer321/ynab-mcp-go/internal/types"
)

var (
	// ErrNotAuthenticated is returned when the token is missing or rejected
	ErrNotAuthenticated = internalTypes.ErrNotAuthenticated

	// ErrForbidden is returned when the account cannot access the resource
	ErrForbidden = internalTypes.ErrForbidden

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = internalTypes.ErrRateLimited

	// ErrTimeout is returned on timeout
	ErrTimeout = internalTypes.ErrTimeout

	// ErrNotFound is returned when resource not found
	ErrNotFound = internalTypes.ErrNotFound

	// ErrConflict is returned when a resource conflicts with an existing one
	ErrConflict = internalTypes.ErrConflict

	// ErrServerError is returned for server errors
	ErrServerError = internalTypes.ErrServerError

	// ErrInvalidRequest is returned for invalid requests
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnsupportedResource is returned for unknown delta resources
	ErrUnsupportedResource = errors.New("unsupported resource")
)

// Error represents an API error
type Error = internalTypes.Error

// ValidationError represents a parameter validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidRequest
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrForbidden)
}

// IsRetryable checks if error is retryable
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) {
		return true
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}

	return false
}
