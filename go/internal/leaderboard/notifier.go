package leaderboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type NotifierConfig struct {
	DatabaseURL          string        // Postgres DSN for LISTEN/NOTIFY
	Channel              string        // Channel name to LISTEN on
	PingInterval         time.Duration // How often to check the connection
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
}

func DefaultNotifierConfig() NotifierConfig {
	return NotifierConfig{
		Channel:              NotifyChannel,
		PingInterval:         90 * time.Second,
		MinReconnectInterval: 10 * time.Second,
		MaxReconnectInterval: time.Minute,
	}
}

// ChangeHandler is called with the ID of a new entry, or uuid.Nil when the
// connection was re-established and notifications may have been missed.
type ChangeHandler func(entryID uuid.UUID)

// Notifier turns leaderboard NOTIFY messages into change callbacks.
type Notifier struct {
	listener *pq.Listener
	cfg      NotifierConfig

	mu       sync.RWMutex
	handlers []ChangeHandler
}

func NewNotifier(cfg NotifierConfig) (*Notifier, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnectInterval,
		cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("leaderboard listener event")
			}
		},
	)
	if err := l.Listen(cfg.Channel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.Channel).
		Msg("listening for leaderboard changes")

	return &Notifier{
		listener: l,
		cfg:      cfg,
	}, nil
}

// Subscribe registers a handler. Handlers run on the notifier goroutine and
// should return quickly.
func (n *Notifier) Subscribe(handler ChangeHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
}

// Start blocks dispatching notifications until ctx is canceled.
func (n *Notifier) Start(ctx context.Context) error {
	log.Info().
		Str("channel", n.cfg.Channel).
		Dur("ping_interval", n.cfg.PingInterval).
		Msg("leaderboard notifier started")

	pingTicker := time.NewTicker(n.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("leaderboard notifier shutting down")
			return n.Stop()
		case note := <-n.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established
				n.dispatch(uuid.Nil)
				continue
			}
			n.handleNotification(note.Extra)
		case <-pingTicker.C:
			if err := n.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping leaderboard listener")
			}
		}
	}
}

func (n *Notifier) Stop() error {
	return n.listener.Close()
}

// handleNotification parses the entry ID carried in the notification payload.
func (n *Notifier) handleNotification(extra string) {
	id, err := uuid.Parse(extra)
	if err != nil {
		log.Error().Err(err).Str("payload", extra).Msg("invalid entry ID in notification")
		return
	}
	n.dispatch(id)
}

func (n *Notifier) dispatch(id uuid.UUID) {
	n.mu.RLock()
	handlers := make([]ChangeHandler, len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.RUnlock()

	for _, handler := range handlers {
		handler(id)
	}
}
