package balancer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reviewgate/reviewgate/internal/metrics"
	"github.com/reviewgate/reviewgate/internal/provider"
)

// RefreshAll probes every registered provider concurrently and waits for
// all probes to finish. It is a no-op while the global health-check
// interval has not elapsed, so callers can invoke it on every request.
// Probe failures only downgrade the probed record and are never returned.
func (lb *LoadBalancer) RefreshAll(ctx context.Context) {
	lb.mutex.Lock()
	if time.Since(lb.lastHealthCheck) < lb.healthCheckInterval {
		lb.mutex.Unlock()
		return
	}
	lb.lastHealthCheck = time.Now()
	records := make([]*ProviderRecord, len(lb.records))
	copy(records, lb.records)
	lb.mutex.Unlock()

	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(rec *ProviderRecord) {
			defer wg.Done()
			lb.probe(ctx, rec)
		}(rec)
	}
	wg.Wait()
}

// probe runs one health check and folds the outcome into the record. Probe
// latency lands in the same accumulator as request latency, so the running
// average mixes both.
func (lb *LoadBalancer) probe(ctx context.Context, rec *ProviderRecord) {
	start := time.Now()
	result := rec.adapter.HealthCheck(ctx)
	latencyMs := time.Since(start).Milliseconds()

	previous := rec.Status()

	if result.Status == provider.StatusOK {
		rec.markSuccess()
	} else {
		status := rec.markFailure()
		lb.logger.Warn("Provider health probe degraded",
			slog.String("provider", rec.name),
			slog.String("status", status.String()),
			slog.String("reason", result.Reason))
	}

	rec.touchHealthCheck()
	rec.addLatency(latencyMs)

	if current := rec.Status(); current != previous {
		lb.emit(metrics.MetricEvent{Type: metrics.EventHealthChanged, Provider: rec.name, Health: current.String()})
		lb.logger.Info("Provider status changed",
			slog.String("provider", rec.name),
			slog.String("from", previous.String()),
			slog.String("to", current.String()))
	}
}
