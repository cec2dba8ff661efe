package ynab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/eshaffer321/ynab-mcp-go/internal/transport"
	internalTypes "github.com/eshaffer321/ynab-mcp-go/internal/types"
	"github.com/getsentry/sentry-go"
)

const (
	// DefaultBaseURL is the default YNAB API base URL
	DefaultBaseURL = internalTypes.DefaultBaseURL

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = internalTypes.DefaultTimeout

	// UserAgent is the user agent string
	UserAgent = internalTypes.UserAgent
)

// Client is the main YNAB API client
type Client struct {
	// Service interfaces
	Budgets      BudgetService
	Accounts     AccountService
	Categories   CategoryService
	Transactions TransactionService
	Deltas       DeltaService
	User         UserService

	// Internal fields
	baseURL    string
	httpClient *http.Client
	transport  Transport
	options    *ClientOptions
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the default API base URL
	BaseURL string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// Token is the YNAB personal access token
	Token string

	// Logger for debug logging
	Logger Logger

	// RetryConfig configures retry behavior
	RetryConfig *internalTypes.RetryConfig

	// RateLimiter for rate limiting; *rate.Limiter satisfies it
	RateLimiter RateLimiter

	// Hooks for observability
	Hooks *internalTypes.Hooks

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// Logger interface for logging
type Logger = internalTypes.Logger

// RateLimiter interface for rate limiting
type RateLimiter = internalTypes.RateLimiter

// Transport handles HTTP communication with the API
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error
	SetAuth(token string)
}

// NewClient creates a new YNAB client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}

		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}

		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}

		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		// Log but don't fail client creation
		if err := sentry.Init(sentryOpts); err != nil {
			if opts.Logger != nil {
				opts.Logger.Error("Failed to initialize Sentry", "error", err)
			}
		}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	trans := transport.NewRESTTransport(&transport.Options{
		BaseURL:     opts.BaseURL,
		HTTPClient:  opts.HTTPClient,
		RetryConfig: opts.RetryConfig,
		Logger:      opts.Logger,
		Hooks:       opts.Hooks,
	})

	if opts.Token != "" {
		trans.SetAuth(opts.Token)
	}

	c := &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		transport:  trans,
		options:    opts,
	}

	c.initServices()

	return c, nil
}

// NewClientWithToken creates a client with a personal access token
func NewClientWithToken(token string) (*Client, error) {
	return NewClient(&ClientOptions{
		Token: token,
	})
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	c.Budgets = &budgetService{client: c}
	c.Accounts = &accountService{client: c}
	c.Categories = &categoryService{client: c}
	c.Transactions = &transactionService{client: c}
	c.Deltas = &deltaService{client: c}
	c.User = &userService{client: c}
}

// SetToken sets the personal access token
func (c *Client) SetToken(token string) {
	c.transport.SetAuth(token)
}

// execute runs a request through rate limiting and error capture
func (c *Client) execute(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	if c.options.RateLimiter != nil {
		if err := c.options.RateLimiter.Wait(ctx); err != nil {
			captureException(ctx, err, nil)
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	err := c.transport.Do(ctx, method, path, query, body, result)
	duration := time.Since(start)

	if err != nil {
		captureException(ctx, err, func(scope *sentry.Scope) {
			scope.SetTag("ynab.method", method)
			scope.SetContext("ynab", map[string]interface{}{
				"path":     path,
				"query":    query.Encode(),
				"duration": duration.String(),
			})
		})

		if c.options.Hooks != nil && c.options.Hooks.OnError != nil {
			c.options.Hooks.OnError(ctx, err)
		}
	}

	return err
}

// get is shorthand for a GET request
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.execute(ctx, http.MethodGet, path, query, nil, result)
}

// Close flushes any pending Sentry events
func (c *Client) Close() {
	sentry.Flush(2 * time.Second)
}

// captureException reports err on the context hub when there is one
func captureException(ctx context.Context, err error, configure func(scope *sentry.Scope)) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if configure != nil {
			configure(scope)
		}
		hub.CaptureException(err)
	})
}

// budgetPath builds /budgets/{id}/{segments...} with escaped ids
func budgetPath(budgetID string, segments ...string) string {
	p := "/budgets/" + url.PathEscape(budgetID)
	for _, s := range segments {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// knowledgeQuery returns the last_knowledge_of_server parameter, or nil for a full fetch
func knowledgeQuery(lastKnowledge int64) url.Values {
	if lastKnowledge <= 0 {
		return nil
	}
	q := url.Values{}
	q.Set("last_knowledge_of_server", fmt.Sprintf("%d", lastKnowledge))
	return q
}
