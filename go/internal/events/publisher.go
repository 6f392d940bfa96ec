package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConfig configures the game event stream. Subjects are laid out as
// <prefix>.<session id>.<event type>, so one session's history is a single
// wildcard filter away.
type JetStreamConfig struct {
	URL                string
	StreamName         string
	SubjectPrefix      string
	ReconnectWait      time.Duration
	MaxAge             time.Duration
	MaxEventsPerType   int64 // per session and event type
	DuplicateWindow    time.Duration
	ReplayFetchTimeout time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:                nats.DefaultURL,
		StreamName:         "REFLEX_EVENTS",
		SubjectPrefix:      "reflex.events",
		ReconnectWait:      2 * time.Second,
		MaxAge:             24 * time.Hour,
		MaxEventsPerType:   1000,
		DuplicateWindow:    2 * time.Minute,
		ReplayFetchTimeout: 2 * time.Second,
	}
}

// JetStreamPublisher writes game events to a JetStream stream and reads a
// session's events back.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("reflex-events"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("event broker disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("event broker reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}

	stream, err := js.CreateOrUpdateStream(ctx, p.streamConfig())
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create or update stream %s: %w", cfg.StreamName, err)
	}

	log.Info().
		Str("stream", stream.CachedInfo().Config.Name).
		Strs("subjects", stream.CachedInfo().Config.Subjects).
		Msg("game event stream ready")

	return p, nil
}

func (p *JetStreamPublisher) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:              p.config.StreamName,
		Description:       "Reflex game session events",
		Subjects:          []string{p.config.SubjectPrefix + ".*.*"},
		Retention:         jetstream.LimitsPolicy,
		MaxAge:            p.config.MaxAge,
		MaxMsgsPerSubject: p.config.MaxEventsPerType,
		Discard:           jetstream.DiscardOld,
		Storage:           jetstream.FileStorage,
		Replicas:          1,
		Duplicates:        p.config.DuplicateWindow,
	}
}

// Subject is where an envelope is published.
func (p *JetStreamPublisher) Subject(env Envelope) string {
	return fmt.Sprintf("%s.%s.%s", p.config.SubjectPrefix, env.SessionID, env.EventType)
}

// SessionFilter matches every event of one session.
func (p *JetStreamPublisher) SessionFilter(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.*", p.config.SubjectPrefix, sessionID)
}

// Publish is idempotent per event ID within the duplicate window.
func (p *JetStreamPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", env.EventType, err)
	}

	msg := nats.NewMsg(p.Subject(env))
	msg.Data = data
	msg.Header.Set("Reflex-Event-Type", env.EventType)
	msg.Header.Set("Reflex-Session", env.SessionID.String())

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(env.EventID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", env.EventType, err)
	}

	log.Debug().
		Str("session_id", env.SessionID.String()).
		Str("event_type", env.EventType).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("game event stored")

	return nil
}

// ReplaySession returns the stored events of one session in publish order.
func (p *JetStreamPublisher) ReplaySession(ctx context.Context, sessionID uuid.UUID) ([]Envelope, error) {
	filter := p.SessionFilter(sessionID)

	stream, err := p.js.Stream(ctx, p.config.StreamName)
	if err != nil {
		return nil, fmt.Errorf("look up stream: %w", err)
	}
	info, err := stream.Info(ctx, jetstream.WithSubjectFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("get stream info: %w", err)
	}

	var total int
	for _, n := range info.State.Subjects {
		total += int(n)
	}
	if total == 0 {
		return []Envelope{}, nil
	}

	cons, err := stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{filter},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create replay consumer: %w", err)
	}

	envelopes := make([]Envelope, 0, total)
	for len(envelopes) < total {
		batch, err := cons.Fetch(total-len(envelopes), jetstream.FetchMaxWait(p.config.ReplayFetchTimeout))
		if err != nil {
			return nil, fmt.Errorf("fetch session events: %w", err)
		}

		got := 0
		for msg := range batch.Messages() {
			got++
			var env Envelope
			if err := json.Unmarshal(msg.Data(), &env); err != nil {
				log.Warn().Err(err).Str("subject", msg.Subject()).Msg("skipping undecodable event")
				continue
			}
			envelopes = append(envelopes, env)
		}
		if err := batch.Error(); err != nil {
			return nil, fmt.Errorf("fetch session events: %w", err)
		}
		if got == 0 {
			break
		}
	}
	return envelopes, nil
}

// IsConnected reports whether the NATS connection is currently up.
func (p *JetStreamPublisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

func (p *JetStreamPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

// LogPublisher writes envelopes to the log. Used when NATS is not configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, env Envelope) error {
	log.Info().
		Str("event_type", env.EventType).
		Str("event_id", env.EventID.String()).
		Str("session_id", env.SessionID.String()).
		RawJSON("payload", env.Payload).
		Msg("game event")
	return nil
}
