package provider

import (
	"context"
	"time"
)

// Health probe outcomes. Probes fail closed: a broken backend yields a
// degraded result, never an error.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// HealthResult is the outcome of a cheap availability probe.
type HealthResult struct {
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	Model     string `json:"model,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Reason    string `json:"reason,omitempty"`
}

// GenerateOptions carries the per-request generation parameters. Zero values
// fall back to the adapter's configured defaults.
type GenerateOptions struct {
	MaxTokens   int
	Temperature *float64
	JSONOutput  bool
}

// GenerateResult is a completed generation call.
type GenerateResult struct {
	Content      string         `json:"content"`
	ProviderUsed string         `json:"provider_used"`
	ProviderName string         `json:"provider_name"`
	Usage        map[string]int `json:"usage"`
	ID           string         `json:"id,omitempty"`
}

// Adapter is the capability a backend integration exposes to the load
// balancer. Implementations must honor context cancellation on both calls
// and keep HealthCheck bounded in time.
type Adapter interface {
	Name() string
	HealthCheck(ctx context.Context) HealthResult
	GenerateReview(ctx context.Context, prompt string, opts GenerateOptions) (*GenerateResult, error)
}

// Settings configures a concrete adapter. Values come from the providers
// section of the application config.
type Settings struct {
	APIKey            string
	Model             string
	BaseURL           string
	MaxTokens         int
	Temperature       float64
	RequestTimeout    time.Duration
	RequestsPerMinute int
}
