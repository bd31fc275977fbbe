package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived  EventType = "request_received"
	EventProviderSelected EventType = "provider_selected"
	EventRequestCompleted EventType = "request_completed"
	EventFailover         EventType = "failover"
	EventHealthChanged    EventType = "health_changed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Provider  string
	Duration  time.Duration
	Success   bool
	Health    string
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit sends an event without blocking; events are dropped when the buffer
// is full.
func (c *Collector) Emit(event MetricEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Provider)

	case EventProviderSelected:
		c.metrics.RecordSelection(event.Provider)

	case EventRequestCompleted:
		c.metrics.RecordCompletion(event.Provider, event.Duration, event.Success)

	case EventFailover:
		c.metrics.RecordFailover(event.Provider)

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Provider, event.Health)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
