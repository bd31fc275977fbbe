package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex        sync.RWMutex
	requests     map[string]int64
	selections   map[string]int64
	successes    map[string]int64
	failures     map[string]int64
	failovers    map[string]int64
	latencies    map[string][]time.Duration
	healthStatus map[string]string
	startTime    time.Time
}

type Snapshot struct {
	TotalRequests  int64                      `json:"total_requests"`
	TotalFailovers int64                      `json:"total_failovers"`
	Uptime         time.Duration              `json:"uptime"`
	Providers      map[string]ProviderMetrics `json:"providers"`
}

type ProviderMetrics struct {
	Requests   int64         `json:"requests"`
	Selections int64         `json:"selections"`
	Successes  int64         `json:"successes"`
	Failures   int64         `json:"failures"`
	Failovers  int64         `json:"failovers"`
	Health     string        `json:"health"`
	AvgLatency time.Duration `json:"avg_latency"`
	P50Latency time.Duration `json:"p50_latency"`
	P95Latency time.Duration `json:"p95_latency"`
	P99Latency time.Duration `json:"p99_latency"`
}

func (m *Metrics) IncrementRequests(provider string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[provider]++
}

func (m *Metrics) RecordSelection(provider string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[provider]++
}

func (m *Metrics) RecordCompletion(provider string, duration time.Duration, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if success {
		m.successes[provider]++
	} else {
		m.failures[provider]++
	}

	m.latencies[provider] = append(m.latencies[provider], duration)

	if len(m.latencies[provider]) > 1000 {
		m.latencies[provider] = m.latencies[provider][1:]
	}
}

func (m *Metrics) RecordFailover(provider string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failovers[provider]++
}

func (m *Metrics) UpdateHealthStatus(provider string, status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[provider] = status
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:    time.Since(m.startTime),
		Providers: make(map[string]ProviderMetrics),
	}

	// Collect all provider names seen on any event stream
	allProviders := make(map[string]bool)
	for provider := range m.requests {
		allProviders[provider] = true
	}
	for provider := range m.selections {
		allProviders[provider] = true
	}
	for provider := range m.latencies {
		allProviders[provider] = true
	}
	for provider := range m.failovers {
		allProviders[provider] = true
	}
	for provider := range m.healthStatus {
		allProviders[provider] = true
	}

	for provider := range allProviders {
		snap.TotalRequests += m.requests[provider]
		snap.TotalFailovers += m.failovers[provider]

		pm := ProviderMetrics{
			Requests:   m.requests[provider],
			Selections: m.selections[provider],
			Successes:  m.successes[provider],
			Failures:   m.failures[provider],
			Failovers:  m.failovers[provider],
			Health:     m.healthStatus[provider],
		}

		durations := m.latencies[provider]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			pm.AvgLatency = average(sorted)
			pm.P50Latency = percentile(sorted, 0.50)
			pm.P95Latency = percentile(sorted, 0.95)
			pm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Providers[provider] = pm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:     make(map[string]int64),
		selections:   make(map[string]int64),
		successes:    make(map[string]int64),
		failures:     make(map[string]int64),
		failovers:    make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		healthStatus: make(map[string]string),
		startTime:    time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
