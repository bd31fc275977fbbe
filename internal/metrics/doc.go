// Package metrics provides real-time metrics collection for the provider
// load balancer.
//
// It uses a channel-based event pipeline to asynchronously collect metrics
// about:
//   - Review request counts per provider
//   - Provider selection frequencies and failovers
//   - Generation latencies with percentile calculations (P50, P95, P99)
//   - Health status tracking
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the dispatch path. Events are sent via a buffered channel with
// non-blocking semantics so a saturated collector never slows a request.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.EventChannel() <- metrics.MetricEvent{
//		Type:     metrics.EventRequestCompleted,
//		Provider: "openai",
//		Duration: 150 * time.Millisecond,
//		Success:  true,
//	}
//
//	snapshot := collector.Snapshot()
//
// The package provides thread-safe metrics storage using sync.RWMutex and
// supports graceful shutdown with event draining to prevent data loss.
package metrics
