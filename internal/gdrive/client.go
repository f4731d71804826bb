package gdrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
)

// Default API roots.
const (
	DefaultBaseURL   = "https://www.googleapis.com/drive/v3"
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3"
)

// Retry and backoff constants.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "stagsync/0.1"
)

// Default client-side request budget, well under Drive's per-user quota.
const (
	defaultRateLimit = rate.Limit(10)
	defaultBurst     = 10
)

// TokenSource provides OAuth2 bearer tokens.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the Drive v3 REST API. It handles request
// construction, authentication, rate limiting, retry with exponential
// backoff, and error classification.
type Client struct {
	baseURL    string
	uploadURL  string
	httpClient *http.Client
	token      TokenSource
	limiter    *rate.Limiter
	logger     *slog.Logger

	// sleepFunc waits between retries. Tests override it to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithUploadURL overrides the upload API root.
func WithUploadURL(u string) ClientOption {
	return func(c *Client) { c.uploadURL = u }
}

// WithRateLimit replaces the default request limiter.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// NewClient creates a Drive API client. baseURL is typically DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL:    baseURL,
		uploadURL:  DefaultUploadURL,
		httpClient: httpClient,
		token:      token,
		limiter:    rate.NewLimiter(defaultRateLimit, defaultBurst),
		logger:     logger,
		sleepFunc:  timeSleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// request is one logical API call. The body is held as bytes so every retry
// can resend it.
type request struct {
	method      string
	url         string
	query       url.Values
	body        []byte
	contentType string
}

// do executes req against the API with retry. The caller closes the response
// body on success.
func (c *Client) do(ctx context.Context, req request) (*http.Response, error) {
	target := req.url
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var attempt int
	for {
		resp, err := c.doOnce(ctx, req, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("gdrive: request canceled: %w", ctx.Err())
			}

			// No token means no request was sent; retrying cannot help.
			if errors.Is(err, ErrUnauthorized) {
				return nil, err
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", req.method),
					slog.String("url", req.url),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("gdrive: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("gdrive: %s %s failed after %d retries: %w", req.method, req.url, maxRetries, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", req.method),
				slog.String("url", req.url),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		apiErr := toAPIError(resp)
		resp.Body.Close()

		if isRetryable(resp.StatusCode, apiErr.Reason) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", req.method),
				slog.String("url", req.url),
				slog.Int("status", resp.StatusCode),
				slog.String("reason", apiErr.Reason),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("gdrive: request canceled: %w", err)
			}

			attempt++

			continue
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", req.method),
				slog.String("url", req.url),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, apiErr
	}
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, req request, target string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader = http.NoBody
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining token: %w", ErrUnauthorized, err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+tok)
	httpReq.Header.Set("User-Agent", userAgent)

	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	return c.httpClient.Do(httpReq)
}

// toAPIError reads the Drive error envelope
// {"error":{"code","message","errors":[{"reason"}]}} from a failed response.
func toAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var gerr *googleapi.Error
	if errors.As(googleapi.CheckResponse(resp), &gerr) {
		if gerr.Message != "" {
			apiErr.Message = gerr.Message
		} else if gerr.Body != "" {
			apiErr.Message = gerr.Body
		}

		if len(gerr.Errors) > 0 {
			apiErr.Reason = gerr.Errors[0].Reason
		}
	}

	apiErr.Err = classifyStatus(resp.StatusCode, apiErr.Reason)

	return apiErr
}

// retryBackoff honors Retry-After on throttled responses and otherwise
// falls back to exponential backoff.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
