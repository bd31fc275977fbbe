package balancer

import (
	"errors"
	"fmt"
)

// ErrNoAvailableProviders means no registered provider is Healthy or
// Degraded at selection time.
var ErrNoAvailableProviders = errors.New("no available LLM providers")

// ExhaustedError means every eligible provider was tried once for a single
// logical request and all of them failed. It carries the most recent
// underlying failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d eligible providers exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
