package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	maxRetries       = 2
	baseRetryBackoff = 250 * time.Millisecond
)

// APIError is a non-2xx response from a provider backend.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, truncate(e.Body, 1000))
}

// Transient reports whether the status is worth retrying.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// retryWithBackoff runs fn up to maxRetries+1 times, sleeping
// 250ms * 2^attempt between attempts. Only transient API errors and
// transport errors are retried; anything else is returned immediately.
func retryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := baseRetryBackoff * (1 << uint(attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return lastErr
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	// Transport-level failures (connection reset, timeout) surface as plain
	// errors from the HTTP client and are retried.
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
