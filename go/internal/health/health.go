package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Status is the result of one health check.
type Status struct {
	Healthy           bool      `json:"healthy"`
	CheckedAt         time.Time `json:"checked_at"`
	DatabaseConnected *bool     `json:"database_connected,omitempty"`
	NATSConnected     *bool     `json:"nats_connected,omitempty"`
	PendingEvents     int       `json:"pending_events"`
	ActiveConnections int       `json:"active_connections"`
	Errors            []string  `json:"errors"`
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connector is satisfied by *events.JetStreamPublisher.
type Connector interface {
	IsConnected() bool
}

type Option func(*Checker)

func WithDatabase(db Pinger) Option {
	return func(c *Checker) {
		c.db = db
	}
}

func WithNATS(conn Connector) Option {
	return func(c *Checker) {
		c.nats = conn
	}
}

// WithPendingEvents reports the event queue depth. Above maxPending the
// service is still healthy but the check records an error.
func WithPendingEvents(pending func() int, maxPending int) Option {
	return func(c *Checker) {
		c.pending = pending
		c.maxPending = maxPending
	}
}

func WithConnections(count func() int) Option {
	return func(c *Checker) {
		c.connections = count
	}
}

// Checker reports whether the server's dependencies are reachable. Every
// dependency is optional; an in-memory server with no broker is always
// healthy.
type Checker struct {
	db          Pinger
	nats        Connector
	pending     func() int
	maxPending  int
	connections func() int
	timeout     time.Duration
	now         func() time.Time
}

func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Checker) Check(ctx context.Context) Status {
	status := Status{
		Healthy:   true,
		CheckedAt: c.now().UTC(),
		Errors:    []string{},
	}

	if c.db != nil {
		connected := true
		if err := c.db.Ping(ctx); err != nil {
			connected = false
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
		}
		status.DatabaseConnected = &connected
	}

	if c.nats != nil {
		connected := c.nats.IsConnected()
		if !connected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
		status.NATSConnected = &connected
	}

	if c.pending != nil {
		status.PendingEvents = c.pending()
		if c.maxPending > 0 && status.PendingEvents > c.maxPending {
			status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", status.PendingEvents))
		}
	}

	if c.connections != nil {
		status.ActiveConnections = c.connections()
	}

	return status
}

func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	status := c.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		log.Warn().Strs("errors", status.Errors).Msg("health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health response")
	}
}
