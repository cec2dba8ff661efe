package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eshaffer321/ynab-mcp-go/internal/types"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	authHeaderKey      = "Authorization"
	requestIDHeaderKey = "X-Request-Id"
	contentType        = "application/json"
)

// RESTTransport handles communication with the YNAB REST API
type RESTTransport struct {
	baseURL     string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	headers     map[string]string
	token       string
	logger      types.Logger
	hooks       *types.Hooks
}

// envelope is the wrapper YNAB puts around every response body
type envelope struct {
	Data  json.RawMessage       `json:"data,omitempty"`
	Error *types.APIErrorDetail `json:"error,omitempty"`
}

// NewRESTTransport creates a new REST transport
func NewRESTTransport(opts *Options) *RESTTransport {
	if opts == nil {
		opts = &Options{}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = types.DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: types.DefaultTimeout,
		}
	}

	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryCfg := opts.RetryConfig.WithDefaults()
		retryClient.RetryMax = retryCfg.MaxRetries
		retryClient.RetryWaitMin = retryCfg.RetryWait
		retryClient.RetryWaitMax = retryCfg.MaxWait
		// Keep the response so handleHTTPError can map the final status
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

		if opts.Logger != nil {
			retryClient.Logger = &retryLogger{logger: opts.Logger}
		} else {
			retryClient.Logger = nil
		}
	}

	headers := map[string]string{
		"Accept":     contentType,
		"User-Agent": types.UserAgent,
	}

	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &RESTTransport{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  opts.HTTPClient,
		retryClient: retryClient,
		headers:     headers,
		logger:      opts.Logger,
		hooks:       opts.Hooks,
	}
}

// Do executes a request against path and decodes the "data" envelope into result
func (t *RESTTransport) Do(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	if t.token == "" {
		return types.ErrNotAuthenticated
	}

	endpoint := t.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set(authHeaderKey, fmt.Sprintf("Bearer %s", t.token))

	requestID := uuid.New().String()
	httpReq.Header.Set(requestIDHeaderKey, requestID)

	if t.hooks != nil && t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, httpReq)
	}

	if t.logger != nil {
		t.logger.Debug("YNAB request", "method", method, "path", path, "query", query.Encode(), "request_id", requestID)
	}

	start := time.Now()
	resp, err := t.doRequest(httpReq)
	duration := time.Since(start)

	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if t.hooks != nil && t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, resp, duration)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if t.logger != nil {
		t.logger.Debug("YNAB response", "status", resp.StatusCode, "duration", duration, "size", len(respBody), "request_id", requestID)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := t.handleHTTPError(resp.StatusCode, respBody)
		var typed *types.Error
		if errors.As(apiErr, &typed) {
			typed.RequestID = requestID
		}
		return apiErr
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}

	if len(env.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Data, result); err != nil {
		return errors.Wrap(err, "failed to unmarshal result")
	}

	return nil
}

// SetAuth sets the personal access token
func (t *RESTTransport) SetAuth(token string) {
	t.token = token
}

// doRequest executes the HTTP request with retry if configured
func (t *RESTTransport) doRequest(req *http.Request) (*http.Response, error) {
	if t.retryClient != nil {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return t.retryClient.Do(retryReq)
	}
	return t.httpClient.Do(req)
}

// handleHTTPError maps a non-2xx response onto a typed error
func (t *RESTTransport) handleHTTPError(statusCode int, body []byte) error {
	var env envelope
	_ = json.Unmarshal(body, &env)

	detail := types.APIErrorDetail{}
	if env.Error != nil {
		detail = *env.Error
	}

	newErr := func(code string, sentinel error) error {
		msg := detail.Detail
		if msg == "" {
			msg = sentinel.Error()
		}
		return &types.Error{
			Code:       code,
			Message:    msg,
			StatusCode: statusCode,
			Detail:     detail.Name,
			Err:        sentinel,
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return newErr("UNAUTHORIZED", types.ErrNotAuthenticated)
	case http.StatusForbidden:
		return newErr("FORBIDDEN", types.ErrForbidden)
	case http.StatusNotFound:
		return newErr("NOT_FOUND", types.ErrNotFound)
	case http.StatusConflict:
		return newErr("CONFLICT", types.ErrConflict)
	case http.StatusTooManyRequests:
		return newErr("RATE_LIMITED", types.ErrRateLimited)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return newErr("TIMEOUT", types.ErrTimeout)
	case http.StatusBadRequest:
		msg := detail.Detail
		if msg == "" {
			msg = "bad request"
		}
		return &types.Error{
			Code:       "BAD_REQUEST",
			Message:    msg,
			StatusCode: statusCode,
			Detail:     detail.Name,
		}
	default:
		if statusCode >= 500 {
			baseMsg := fmt.Sprintf("server error: %d", statusCode)
			if desc := http.StatusText(statusCode); desc != "" {
				baseMsg = fmt.Sprintf("server error: %d (%s)", statusCode, desc)
			}
			if detail.Detail != "" {
				baseMsg = fmt.Sprintf("%s: %s", baseMsg, detail.Detail)
			}

			return &types.Error{
				Code:       "SERVER_ERROR",
				Message:    baseMsg,
				StatusCode: statusCode,
				Detail:     detail.Name,
				Err:        types.ErrServerError,
			}
		}
		return &types.Error{
			Code:       "HTTP_ERROR",
			Message:    fmt.Sprintf("HTTP error: %d", statusCode),
			StatusCode: statusCode,
		}
	}
}

// Options for the REST transport
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	Logger      types.Logger
	Hooks       *types.Hooks
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
