package types

import (
	"errors"
	"time"
)

const (
	// DefaultBaseURL is the default YNAB API base URL
	DefaultBaseURL = "https://api.ynab.com/v1"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// UserAgent is the user agent string
	UserAgent = "ynab-mcp-go/1.0.0"
)

// Common errors
var (
	// ErrNotAuthenticated is returned when the API token is missing or rejected
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the token lacks access (e.g. subscription lapsed)
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a resource conflicts with an existing one
	ErrConflict = errors.New("conflict")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")
)
