package balancer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reviewgate/reviewgate/internal/metrics"
	"github.com/reviewgate/reviewgate/internal/provider"
)

// Metadata is what the balancer learned while serving one request.
type Metadata struct {
	ProviderUsed   string         `json:"provider_used"`
	ProviderStatus ProviderStatus `json:"provider_status"`
	LatencyMs      int64          `json:"latency_ms"`
	TotalRequests  int64          `json:"total_requests"`
}

// Result is a completed generation together with balancer metadata.
type Result struct {
	provider.GenerateResult
	Balancer Metadata `json:"load_balancer"`
}

// Options configures a LoadBalancer.
type Options struct {
	// HealthCheckInterval gates how often RefreshAll actually probes.
	HealthCheckInterval time.Duration
	// MaxFailures is the consecutive-failure threshold that marks a
	// provider Failed.
	MaxFailures int
	// Collector receives observability events; nil disables emission.
	Collector *metrics.Collector
	Logger    *slog.Logger
}

const (
	defaultHealthCheckInterval = 30 * time.Second
	defaultMaxFailures         = 3
)

// LoadBalancer routes generation requests across registered provider
// adapters with health-aware selection and failover. Construct one instance
// at startup and share it by reference; registration is startup-only.
type LoadBalancer struct {
	mutex               sync.Mutex
	records             []*ProviderRecord
	cursor              uint64
	lastHealthCheck     time.Time
	healthCheckInterval time.Duration
	maxFailures         int
	totalRequests       int64

	collector *metrics.Collector
	logger    *slog.Logger
}

// New creates a LoadBalancer with no registered providers.
func New(opts Options) *LoadBalancer {
	if opts.HealthCheckInterval <= 0 {
		opts.HealthCheckInterval = defaultHealthCheckInterval
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &LoadBalancer{
		healthCheckInterval: opts.HealthCheckInterval,
		maxFailures:         opts.MaxFailures,
		collector:           opts.Collector,
		logger:              opts.Logger,
	}
}

// AddProvider registers an adapter under a unique name. Intended for
// startup only; the registry is fixed once requests start flowing.
func (lb *LoadBalancer) AddProvider(name string, adapter provider.Adapter) error {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	for _, rec := range lb.records {
		if rec.name == name {
			return fmt.Errorf("provider %q already registered", name)
		}
	}

	lb.records = append(lb.records, newProviderRecord(name, adapter, lb.maxFailures, lb.healthCheckInterval))
	lb.logger.Info("Registered provider", slog.String("provider", name))
	return nil
}

// Providers returns the registered records in registration order.
func (lb *LoadBalancer) Providers() []*ProviderRecord {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	out := make([]*ProviderRecord, len(lb.records))
	copy(out, lb.records)
	return out
}

// GenerateReview refreshes provider health if due, then dispatches the
// prompt to the selected provider, failing over to alternates until every
// eligible provider has been tried once.
func (lb *LoadBalancer) GenerateReview(ctx context.Context, prompt string, opts provider.GenerateOptions) (*Result, error) {
	lb.RefreshAll(ctx)

	attempted := make(map[string]bool)
	var lastErr error

	for {
		rec := lb.next(attempted)
		if rec == nil {
			if lastErr == nil {
				return nil, ErrNoAvailableProviders
			}
			return nil, &ExhaustedError{Attempts: len(attempted), Err: lastErr}
		}

		attempted[rec.name] = true
		rec.beginRequest()
		lb.emit(metrics.MetricEvent{Type: metrics.EventProviderSelected, Provider: rec.name})

		// The adapter call runs outside every lock so a slow provider
		// cannot stall selection for concurrent requests.
		start := time.Now()
		res, err := rec.adapter.GenerateReview(ctx, prompt, opts)
		latencyMs := time.Since(start).Milliseconds()

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// The caller went away; this says nothing about the provider.
				return nil, err
			}

			status := rec.markFailure()
			lb.emit(metrics.MetricEvent{Type: metrics.EventRequestCompleted, Provider: rec.name, Duration: time.Since(start)})
			lb.emit(metrics.MetricEvent{Type: metrics.EventHealthChanged, Provider: rec.name, Health: status.String()})
			lb.emit(metrics.MetricEvent{Type: metrics.EventFailover, Provider: rec.name})
			lb.logger.Warn("Provider call failed, attempting failover",
				slog.String("provider", rec.name),
				slog.String("status", status.String()),
				slog.String("error", err.Error()))

			lastErr = fmt.Errorf("provider %s: %w", rec.name, err)
			continue
		}

		rec.addLatency(latencyMs)
		rec.markSuccess()

		lb.mutex.Lock()
		lb.totalRequests++
		total := lb.totalRequests
		lb.mutex.Unlock()

		lb.emit(metrics.MetricEvent{Type: metrics.EventRequestCompleted, Provider: rec.name, Duration: time.Since(start), Success: true})
		lb.emit(metrics.MetricEvent{Type: metrics.EventHealthChanged, Provider: rec.name, Health: StatusHealthy.String()})

		return &Result{
			GenerateResult: *res,
			Balancer: Metadata{
				ProviderUsed:   rec.name,
				ProviderStatus: rec.Status(),
				LatencyMs:      latencyMs,
				TotalRequests:  total,
			},
		}, nil
	}
}

func (lb *LoadBalancer) emit(event metrics.MetricEvent) {
	if lb.collector == nil {
		return
	}
	lb.collector.Emit(event)
}
