package provider

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// newAdapterLimiter builds the client-side QPS guard for one adapter.
// Backends without rate-limit headers get throttled here instead.
func newAdapterLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
}

// healthReason maps a probe failure to a short machine-readable reason.
func healthReason(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.StatusCode {
	case 401, 403:
		return "unauthorized_or_forbidden"
	case 404, 422:
		return "model_not_found_or_unavailable"
	case 503:
		return "model_loading_or_busy"
	default:
		return fmt.Sprintf("http_%d", apiErr.StatusCode)
	}
}
