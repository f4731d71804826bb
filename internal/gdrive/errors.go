// Package gdrive is a small Google Drive v3 REST client with retry,
// rate limiting and error classification, plus the folder and object
// operations the save sync needs. Wire types come from
// google.golang.org/api/drive/v3; callers only see File.
package gdrive

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// Sentinel errors for HTTP status classification.
// Use errors.Is(err, gdrive.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("gdrive: bad request")
	ErrUnauthorized = errors.New("gdrive: unauthorized")
	ErrForbidden    = errors.New("gdrive: forbidden")
	ErrNotFound     = errors.New("gdrive: not found")
	ErrThrottled    = errors.New("gdrive: throttled")
	ErrServerError  = errors.New("gdrive: server error")
)

// Operation-level errors. Each wraps the underlying *APIError or transport
// error, so both layers match errors.Is.
var (
	ErrFolderResolution = errors.New("gdrive: folder resolution failed")
	ErrUpload           = errors.New("gdrive: upload failed")
	ErrDownload         = errors.New("gdrive: download failed")
	ErrChecksumMismatch = errors.New("gdrive: checksum mismatch")
)

// APIError is a non-2xx Drive response after retries are exhausted.
type APIError struct {
	StatusCode int
	Reason     string // first errors[].reason from the body, e.g. "rateLimitExceeded"
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gdrive: HTTP %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}

	return fmt.Sprintf("gdrive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a sentinel.
func classifyStatus(code int, reason string) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		if isRateLimitReason(reason) {
			return ErrThrottled
		}

		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// Drive reports quota exhaustion as 403 with one of these reasons.
var rateLimitReasons = []string{"rateLimitExceeded", "userRateLimitExceeded"}

func isRateLimitReason(reason string) bool {
	return slices.Contains(rateLimitReasons, reason)
}

// isRetryable reports whether a response should be retried.
func isRetryable(code int, reason string) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case http.StatusForbidden:
		return isRateLimitReason(reason)
	default:
		return false
	}
}
