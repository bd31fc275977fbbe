package balancer

import (
	"sync"
	"time"

	"github.com/reviewgate/reviewgate/internal/provider"
)

// ProviderRecord wraps one registered adapter with its health state and
// running metrics. Records are created at registration time and live for
// the whole process; they are never removed from the registry.
type ProviderRecord struct {
	name    string
	adapter provider.Adapter

	mutex               sync.Mutex
	status              ProviderStatus
	lastHealthCheck     time.Time
	healthCheckInterval time.Duration
	consecutiveFailures int
	maxFailures         int
	requestsHandled     int64
	lastRequest         time.Time
	totalLatencyMs      int64
	averageLatencyMs    float64
}

func newProviderRecord(name string, adapter provider.Adapter, maxFailures int, healthCheckInterval time.Duration) *ProviderRecord {
	return &ProviderRecord{
		name:                name,
		adapter:             adapter,
		status:              StatusUnknown,
		maxFailures:         maxFailures,
		healthCheckInterval: healthCheckInterval,
	}
}

// Name returns the stable registry identifier of this provider.
func (r *ProviderRecord) Name() string {
	return r.name
}

// Status returns the current health classification.
func (r *ProviderRecord) Status() ProviderStatus {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.status
}

// ConsecutiveFailures returns the current failure streak.
func (r *ProviderRecord) ConsecutiveFailures() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.consecutiveFailures
}

// RequestsHandled returns how many generation calls were dispatched to this
// provider, counting calls that later failed.
func (r *ProviderRecord) RequestsHandled() int64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.requestsHandled
}

// AverageLatencyMs returns the running latency average across health probes
// and generation calls.
func (r *ProviderRecord) AverageLatencyMs() float64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.averageLatencyMs
}

// LastRequestAt returns when a generation call was last dispatched here.
func (r *ProviderRecord) LastRequestAt() time.Time {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.lastRequest
}

// LastHealthCheckAt returns when this provider was last probed.
func (r *ProviderRecord) LastHealthCheckAt() time.Time {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.lastHealthCheck
}

// beginRequest counts a dispatch optimistically, before the adapter call is
// attempted.
func (r *ProviderRecord) beginRequest() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.requestsHandled++
	r.lastRequest = time.Now()
}

// markSuccess transitions to Healthy from any state and clears the failure
// streak. Failed is recoverable, not terminal.
func (r *ProviderRecord) markSuccess() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.status = StatusHealthy
	r.consecutiveFailures = 0
}

// markFailure extends the failure streak and returns the resulting status:
// Degraded below the threshold, Failed exactly when it is crossed.
func (r *ProviderRecord) markFailure() ProviderStatus {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.consecutiveFailures++
	if r.consecutiveFailures >= r.maxFailures {
		r.status = StatusFailed
	} else {
		r.status = StatusDegraded
	}

	return r.status
}

// addLatency folds one measured call into the running totals. Probe and
// request latency share this accumulator, so the average mixes both.
func (r *ProviderRecord) addLatency(latencyMs int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.totalLatencyMs += latencyMs
	if r.requestsHandled > 0 {
		r.averageLatencyMs = float64(r.totalLatencyMs) / float64(r.requestsHandled)
	} else {
		r.averageLatencyMs = 0
	}
}

// touchHealthCheck records the completion time of a probe.
func (r *ProviderRecord) touchHealthCheck() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.lastHealthCheck = time.Now()
}
