package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/mcdev12/reflex/go/internal/config"
	"github.com/mcdev12/reflex/go/internal/events"
	"github.com/mcdev12/reflex/go/internal/gateway"
	"github.com/mcdev12/reflex/go/internal/health"
	"github.com/mcdev12/reflex/go/internal/leaderboard"
	"github.com/mcdev12/reflex/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Leaderboard *leaderboard.Service
	Gateway     *gateway.Service
	Dispatcher  *events.Dispatcher
	Notifier    *leaderboard.Notifier
	Metrics     *metrics.PrometheusMetrics
	Health      *health.Checker
	Replayer    events.SessionReplayer

	closers      []func() error
	healthChecks []health.Option
}

// Close releases store and broker connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close service dependency")
		}
	}
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Store → App → (Connect service, Recorder) → gateway sessions
	s := &Services{Metrics: metrics.NewPrometheusMetrics()}

	repo, err := setupRepository(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}

	app := leaderboard.NewApp(repo)
	s.Leaderboard = leaderboard.NewService(app)
	recorder := leaderboard.NewRecorder(app, cfg.RecorderTimeout)

	publisher, err := setupPublisher(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Dispatcher = events.NewDispatcher(
		events.NewMetricPublisher(publisher, s.Metrics),
		events.DefaultDispatcherConfig(),
		events.WithDispatcherMetrics(s.Metrics),
	)

	catalog, err := cfg.Catalog()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Gateway = gateway.NewService(gatewayConfig(cfg), catalog, gateway.SessionDeps{
		Recorder: recorder,
		Observer: s.Dispatcher,
		Metrics:  s.Metrics,
	})

	s.healthChecks = append(s.healthChecks,
		health.WithPendingEvents(s.Dispatcher.Pending, events.DefaultDispatcherConfig().QueueSize/2),
		health.WithConnections(func() int {
			return s.Gateway.ConnectionManager().GetConnectionStats().TotalConnections
		}),
	)
	s.Health = health.NewChecker(s.healthChecks...)

	if cfg.Store == config.StorePostgres && cfg.ListenForChanges {
		notifier, err := leaderboard.NewNotifier(notifierConfig(cfg))
		if err != nil {
			s.Close()
			return nil, err
		}
		notifier.Subscribe(s.Gateway.OnLeaderboardChanged)
		s.Notifier = notifier
	} else {
		app.Subscribe(s.Gateway.OnLeaderboardChanged)
	}

	log.Info().
		Str("store", string(cfg.Store)).
		Strs("variants", catalog.Names()).
		Bool("jetstream", cfg.NATSURL != "").
		Bool("listen", s.Notifier != nil).
		Msg("services ready")

	return s, nil
}

func setupRepository(ctx context.Context, cfg *config.Config, s *Services) (leaderboard.LeaderboardRepository, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := setupDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error {
			pool.Close()
			return nil
		})
		s.healthChecks = append(s.healthChecks, health.WithDatabase(pool))

		repo := leaderboard.NewPostgresRepository(pool)
		if cfg.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return repo, nil

	case config.StoreFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		return leaderboard.NewFirestoreRepository(client, cfg.FirestoreCollection), nil

	default:
		log.Warn().Msg("using in-memory leaderboard, scores are lost on restart")
		return leaderboard.NewMemoryRepository(nil), nil
	}
}

func setupPublisher(ctx context.Context, cfg *config.Config, s *Services) (events.EventPublisher, error) {
	if cfg.NATSURL == "" {
		return events.LogPublisher{}, nil
	}

	publisher, err := events.NewJetStreamPublisher(ctx, jetStreamConfig(cfg))
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, publisher.Close)
	s.healthChecks = append(s.healthChecks, health.WithNATS(publisher))
	s.Replayer = publisher
	return publisher, nil
}
