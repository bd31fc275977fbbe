package balancer

import (
	"fmt"
	"math"
	"time"
)

// StatusCounts groups the registered providers by health tier.
type StatusCounts struct {
	Total    int `json:"total"`
	Healthy  int `json:"healthy"`
	Degraded int `json:"degraded"`
	Failed   int `json:"failed"`
	Unknown  int `json:"unknown"`
}

// Stats is a point-in-time aggregate over all provider records.
type Stats struct {
	TotalRequests   int64             `json:"total_requests"`
	Providers       StatusCounts      `json:"providers"`
	Distribution    map[string]string `json:"distribution"`
	LastHealthCheck time.Time         `json:"last_health_check"`
	Cursor          uint64            `json:"current_provider_index"`
}

// ProviderDetail is the per-record read projection.
type ProviderDetail struct {
	Name                string         `json:"name"`
	Status              ProviderStatus `json:"status"`
	RequestsHandled     int64          `json:"requests_handled"`
	LastRequest         time.Time      `json:"last_request"`
	AverageLatencyMs    float64        `json:"average_latency_ms"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	LastHealthCheck     time.Time      `json:"last_health_check"`
}

// Stats aggregates the registry as of call time. The request-share
// distribution is computed over requests actually dispatched to records,
// and renders "0%" before any traffic has flowed.
func (lb *LoadBalancer) Stats() Stats {
	lb.mutex.Lock()
	records := make([]*ProviderRecord, len(lb.records))
	copy(records, lb.records)
	stats := Stats{
		TotalRequests:   lb.totalRequests,
		LastHealthCheck: lb.lastHealthCheck,
		Cursor:          lb.cursor,
		Distribution:    make(map[string]string, len(lb.records)),
	}
	lb.mutex.Unlock()

	var handled int64
	for _, rec := range records {
		handled += rec.RequestsHandled()

		switch rec.Status() {
		case StatusHealthy:
			stats.Providers.Healthy++
		case StatusDegraded:
			stats.Providers.Degraded++
		case StatusFailed:
			stats.Providers.Failed++
		default:
			stats.Providers.Unknown++
		}
	}
	stats.Providers.Total = len(records)

	for _, rec := range records {
		if handled > 0 {
			percentage := float64(rec.RequestsHandled()) / float64(handled) * 100
			stats.Distribution[rec.name] = fmt.Sprintf("%.1f%%", percentage)
		} else {
			stats.Distribution[rec.name] = "0%"
		}
	}

	return stats
}

// ProviderDetails returns the per-record projection in registration order.
// It has no side effects.
func (lb *LoadBalancer) ProviderDetails() []ProviderDetail {
	records := lb.Providers()

	details := make([]ProviderDetail, 0, len(records))
	for _, rec := range records {
		details = append(details, ProviderDetail{
			Name:                rec.Name(),
			Status:              rec.Status(),
			RequestsHandled:     rec.RequestsHandled(),
			LastRequest:         rec.LastRequestAt(),
			AverageLatencyMs:    math.Round(rec.AverageLatencyMs()*100) / 100,
			ConsecutiveFailures: rec.ConsecutiveFailures(),
			LastHealthCheck:     rec.LastHealthCheckAt(),
		})
	}

	return details
}
