package events

import (
	"context"
	"time"
)

// MetricsCollector defines the interface for collecting event delivery metrics
type MetricsCollector interface {
	RecordEventPublished(eventType string, success bool, duration time.Duration)
	RecordPublishAttempt(eventType string, attempt int, success bool)
	RecordEventDropped(eventType string)
	RecordQueueDepth(depth int)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventPublished(eventType string, success bool, duration time.Duration) {}
func (NoOpMetricsCollector) RecordPublishAttempt(eventType string, attempt int, success bool) {}
func (NoOpMetricsCollector) RecordEventDropped(eventType string) {}
func (NoOpMetricsCollector) RecordQueueDepth(depth int) {}

// MetricPublisher wraps an EventPublisher with metrics collection
type MetricPublisher struct {
	publisher EventPublisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher EventPublisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, env Envelope) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, env)

	p.metrics.RecordEventPublished(env.EventType, err == nil, time.Since(start))
	return err
}
