package types

import (
	"context"
	"net/http"
	"time"
)

// Logger is the structured logger shared by the client, the store and the server.
// Arguments after msg are alternating keys and values.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RateLimiter blocks until a request may be sent. *rate.Limiter satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// RetryConfig configures retries of idempotent YNAB calls
type RetryConfig struct {
	MaxRetries int           `json:"maxRetries"`
	RetryWait  time.Duration `json:"retryWait"`
	MaxWait    time.Duration `json:"maxWait"`
}

// DefaultRetryConfig backs off from 1s to 30s over three retries
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryWait:  time.Second,
		MaxWait:    30 * time.Second,
	}
}

// WithDefaults fills zero wait bounds from DefaultRetryConfig
func (c RetryConfig) WithDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.RetryWait <= 0 {
		c.RetryWait = def.RetryWait
	}
	if c.MaxWait <= 0 {
		c.MaxWait = def.MaxWait
	}
	if c.MaxWait < c.RetryWait {
		c.MaxWait = c.RetryWait
	}
	return c
}

// Hooks observe each API call
type Hooks struct {
	OnRequest  func(ctx context.Context, req *http.Request)
	OnResponse func(ctx context.Context, resp *http.Response, duration time.Duration)
	OnError    func(ctx context.Context, err error)
}
