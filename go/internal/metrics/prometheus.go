package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mcdev12/reflex/go/internal/events"
	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reflex"

// PrometheusMetrics implements the game and event metrics collectors on a
// dedicated registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	gamesStarted   *prometheus.CounterVec
	roundsCleared  *prometheus.CounterVec
	reactionTime   *prometheus.HistogramVec
	gamesEnded     *prometheus.CounterVec
	finalScore     *prometheus.HistogramVec
	roundsPerGame  *prometheus.HistogramVec
	activeSessions prometheus.Gauge

	eventsPublished *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
	publishAttempts *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	eventQueueDepth prometheus.Gauge
	keysRateLimited prometheus.Counter
}

var (
	_ game.MetricsCollector   = (*PrometheusMetrics)(nil)
	_ events.MetricsCollector = (*PrometheusMetrics)(nil)
)

func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started, by variant.",
		}, []string{"variant"}),
		roundsCleared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_cleared_total",
			Help:      "Rounds cleared, by variant and awarded points.",
		}, []string{"variant", "points"}),
		reactionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reaction_seconds",
			Help:      "Time from symbol shown to correct key press.",
			Buckets:   []float64{0.2, 0.3, 0.4, 0.5, 0.55, 0.6, 0.7, 0.8, 1.0, 1.2},
		}, []string{"variant"}),
		gamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Games ended, by variant and reason.",
		}, []string{"variant", "reason"}),
		finalScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Score at game over.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}, []string{"variant"}),
		roundsPerGame: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rounds_per_game",
			Help:      "Rounds cleared before game over.",
			Buckets:   prometheus.LinearBuckets(0, 5, 12),
		}, []string{"variant"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Connected game sessions.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Event publish results, by type and status.",
		}, []string{"event_type", "status"}),
		publishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_publish_seconds",
			Help:      "Time spent publishing one event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		publishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_attempts_total",
			Help:      "Publish attempts, by type, attempt number and status.",
		}, []string{"event_type", "attempt", "status"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because the queue was full.",
		}, []string{"event_type"}),
		eventQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_queue_depth",
			Help:      "Events waiting to be published.",
		}),
		keysRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_rate_limited_total",
			Help:      "Key presses dropped by the per-connection rate limit.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gamesStarted,
		m.roundsCleared,
		m.reactionTime,
		m.gamesEnded,
		m.finalScore,
		m.roundsPerGame,
		m.activeSessions,
		m.eventsPublished,
		m.publishDuration,
		m.publishAttempts,
		m.eventsDropped,
		m.eventQueueDepth,
		m.keysRateLimited,
	)
	return m
}

// Registry exposes the registry, mostly for tests.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *PrometheusMetrics) RecordGameStarted(variant string) {
	m.gamesStarted.WithLabelValues(variant).Inc()
}

func (m *PrometheusMetrics) RecordRoundCleared(variant string, points int, reaction time.Duration) {
	m.roundsCleared.WithLabelValues(variant, strconv.Itoa(points)).Inc()
	m.reactionTime.WithLabelValues(variant).Observe(reaction.Seconds())
}

func (m *PrometheusMetrics) RecordGameOver(variant string, reason game.EndReason, score, rounds int) {
	m.gamesEnded.WithLabelValues(variant, string(reason)).Inc()
	m.finalScore.WithLabelValues(variant).Observe(float64(score))
	m.roundsPerGame.WithLabelValues(variant).Observe(float64(rounds))
}

func (m *PrometheusMetrics) SessionOpened() {
	m.activeSessions.Inc()
}

func (m *PrometheusMetrics) SessionClosed() {
	m.activeSessions.Dec()
}

func (m *PrometheusMetrics) KeyRateLimited() {
	m.keysRateLimited.Inc()
}

func (m *PrometheusMetrics) RecordEventPublished(eventType string, success bool, duration time.Duration) {
	m.eventsPublished.WithLabelValues(eventType, status(success)).Inc()
	m.publishDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordPublishAttempt(eventType string, attempt int, success bool) {
	m.publishAttempts.WithLabelValues(eventType, strconv.Itoa(attempt), status(success)).Inc()
}

func (m *PrometheusMetrics) RecordEventDropped(eventType string) {
	m.eventsDropped.WithLabelValues(eventType).Inc()
}

func (m *PrometheusMetrics) RecordQueueDepth(depth int) {
	m.eventQueueDepth.Set(float64(depth))
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
