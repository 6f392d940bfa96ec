package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Service is the game gateway: it owns the connection manager and the HTTP
// routes that create sessions.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	deps              SessionDeps
	config            Config
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	LeaderboardTopN  int
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		LeaderboardTopN:  10,
	}
}

// NewService creates a new gateway service
func NewService(config Config, catalog *game.Catalog, deps SessionDeps) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, deps)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, catalog),
		deps:              connectionManager.deps,
		config:            config,
	}
}

// Start runs the connection manager until ctx is canceled
func (s *Service) Start(ctx context.Context) {
	s.connectionManager.Start(ctx)
}

// RegisterRoutes registers the gateway routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
}

// ConnectionManager exposes the manager, mostly for tests.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}

// OnLeaderboardChanged pushes a fresh leaderboard to every player looking at
// a game over screen. It returns immediately.
func (s *Service) OnLeaderboardChanged(entryID uuid.UUID) {
	if s.deps.Recorder == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.connectionManager.config.RecorderTimeout)
		defer cancel()

		entries, ok := s.deps.Recorder.TopScores(ctx, s.config.LeaderboardTopN)
		if !ok {
			return
		}
		if entries == nil {
			entries = []models.LeaderboardEntry{}
		}

		data, err := encode(ServerLeaderboard, entries)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal leaderboard")
			return
		}
		s.connectionManager.Broadcast(data, (*Connection).inGameOver)

		log.Debug().
			Str("entry_id", entryID.String()).
			Int("entries", len(entries)).
			Msg("leaderboard change pushed")
	}()
}
