package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/rs/zerolog/log"
)

type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:      1024,
		Workers:        2,
		PublishTimeout: 5 * time.Second,
		MaxRetries:     3,
		RetryDelay:     200 * time.Millisecond,
	}
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherClock(clock clockwork.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

func WithDispatcherMetrics(m MetricsCollector) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Dispatcher moves session events off the session goroutine. Observe never
// blocks: when the queue is full the event is dropped and logged.
type Dispatcher struct {
	publisher EventPublisher
	cfg       DispatcherConfig
	clock     clockwork.Clock
	metrics   MetricsCollector
	queue     chan Envelope
}

var _ game.Observer = (*Dispatcher)(nil)

func NewDispatcher(publisher EventPublisher, cfg DispatcherConfig, opts ...DispatcherOption) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultDispatcherConfig().QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	d := &Dispatcher{
		publisher: publisher,
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		metrics:   NoOpMetricsCollector{},
		queue:     make(chan Envelope, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe converts a session event and queues it for publishing.
func (d *Dispatcher) Observe(e game.Event) {
	env, ok, err := FromGameEvent(e)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(e.Type)).Msg("failed to build event envelope")
		return
	}
	if !ok {
		return
	}
	d.Enqueue(env)
}

// Enqueue queues env without blocking and reports whether it was accepted.
func (d *Dispatcher) Enqueue(env Envelope) bool {
	select {
	case d.queue <- env:
		d.metrics.RecordQueueDepth(len(d.queue))
		return true
	default:
		d.metrics.RecordEventDropped(env.EventType)
		log.Warn().
			Str("event_type", env.EventType).
			Str("event_id", env.EventID.String()).
			Int("queue_size", d.cfg.QueueSize).
			Msg("event queue full, dropping event")
		return false
	}
}

// Pending reports how many events are waiting to be published.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Run publishes queued events until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Info().
		Int("workers", d.cfg.Workers).
		Int("queue_size", d.cfg.QueueSize).
		Msg("event dispatcher started")

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()

	log.Info().Int("pending", len(d.queue)).Msg("event dispatcher stopped")
	return nil
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-d.queue:
			if err := d.publishWithRetry(ctx, env); err != nil {
				log.Error().
					Err(err).
					Str("event_type", env.EventType).
					Str("event_id", env.EventID.String()).
					Msg("failed to publish event")
			}
		}
	}
}

// publishWithRetry attempts to publish an event with a linear backoff.
func (d *Dispatcher) publishWithRetry(ctx context.Context, env Envelope) error {
	var lastErr error

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.clock.After(d.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		err := d.publishOnce(ctx, env)
		d.metrics.RecordPublishAttempt(env.EventType, attempt+1, err == nil)
		if err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", env.EventID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", env.EventID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", d.cfg.MaxRetries+1, lastErr)
}

func (d *Dispatcher) publishOnce(ctx context.Context, env Envelope) error {
	if d.cfg.PublishTimeout <= 0 {
		return d.publisher.Publish(ctx, env)
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()
	return d.publisher.Publish(ctx, env)
}
