package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ConnectionMetrics records gateway activity.
type ConnectionMetrics interface {
	game.MetricsCollector
	SessionOpened()
	SessionClosed()
	KeyRateLimited()
}

// NoOpMetrics is used when metrics aren't needed
type NoOpMetrics struct {
	game.NoOpMetricsCollector
}

func (NoOpMetrics) SessionOpened()  {}
func (NoOpMetrics) SessionClosed()  {}
func (NoOpMetrics) KeyRateLimited() {}

// SessionDeps are shared by every session the manager creates.
type SessionDeps struct {
	Recorder game.ScoreRecorder
	Observer game.Observer
	Metrics  ConnectionMetrics
	Clock    clockwork.Clock
}

// ConnectionManager manages WebSocket connections and their game sessions
type ConnectionManager struct {
	// Connection pools organized by variant name
	variantConnections map[string]map[*Connection]bool
	mu                 sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config ConnectionConfig
	deps   SessionDeps

	broadcastCh chan BroadcastMessage
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	KeysPerSecond   float64
	KeyBurst        int
	RecorderTimeout time.Duration
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a frame sent to every connection accepted by Filter
type BroadcastMessage struct {
	Data   []byte
	Filter func(*Connection) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // 1KB max message size
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		KeysPerSecond:   30,
		KeyBurst:        10,
		RecorderTimeout: 5 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, deps SessionDeps) *ConnectionManager {
	if deps.Metrics == nil {
		deps.Metrics = NoOpMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	defaults := DefaultConnectionConfig()
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = defaults.SendBufferSize
	}
	if config.RecorderTimeout <= 0 {
		config.RecorderTimeout = defaults.RecorderTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.KeysPerSecond <= 0 {
		config.KeysPerSecond = defaults.KeysPerSecond
	}
	if config.KeyBurst <= 0 {
		config.KeyBurst = defaults.KeyBurst
	}

	return &ConnectionManager{
		variantConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		deps:        deps,
		broadcastCh: make(chan BroadcastMessage, 100),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts a
// game session for it
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, variant game.Variant) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		ID:          uuid.New(),
		Variant:     variant.Name,
		Conn:        conn,
		Manager:     cm,
		ConnectedAt: cm.deps.Clock.Now(),
		send:        make(chan []byte, cm.config.SendBufferSize),
		limiter:     rate.NewLimiter(rate.Limit(cm.config.KeysPerSecond), cm.config.KeyBurst),
		ctx:         ctx,
		cancel:      cancel,
	}

	engine := game.NewEngine(variant, game.WithClock(cm.deps.Clock))
	opts := []game.SessionOption{
		game.WithSessionID(connection.ID),
		game.WithObserver(game.MultiObserver(connection, cm.deps.Observer)),
		game.WithMetrics(cm.deps.Metrics),
	}
	if cm.deps.Recorder != nil {
		opts = append(opts, game.WithRecorder(cm.deps.Recorder))
	}
	connection.session = game.NewSession(engine, opts...)

	cm.registerConnection(connection)
	cm.deps.Metrics.SessionOpened()

	connection.sendSnapshot()

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID.String()).
		Str("variant", variant.Name).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.variantConnections[conn.Variant] == nil {
		cm.variantConnections[conn.Variant] = make(map[*Connection]bool)
	}
	cm.variantConnections[conn.Variant][conn] = true

	log.Debug().
		Str("connection_id", conn.ID.String()).
		Str("variant", conn.Variant).
		Int("total_connections", len(cm.variantConnections[conn.Variant])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and stops its session. It is
// safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.variantConnections[conn.Variant]
	registered := exists && connections[conn]
	if registered {
		delete(connections, conn)
		if len(connections) == 0 {
			delete(cm.variantConnections, conn.Variant)
		}
	}
	cm.mu.Unlock()

	if !registered {
		return
	}

	conn.close()
	conn.session.Close()
	cm.deps.Metrics.SessionClosed()

	log.Info().
		Str("connection_id", conn.ID.String()).
		Str("variant", conn.Variant).
		Msg("connection unregistered")
}

// Broadcast queues a frame for every connection accepted by filter. A nil
// filter selects all connections.
func (cm *ConnectionManager) Broadcast(data []byte, filter func(*Connection) bool) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Data: data, Filter: filter}:
	default:
		log.Warn().Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	targets := cm.snapshot()

	sent := 0
	for _, conn := range targets {
		if message.Filter != nil && !message.Filter(conn) {
			continue
		}
		conn.enqueue(message.Data, true)
		sent++
	}

	log.Debug().
		Int("connections", sent).
		Msg("message broadcasted")
}

func (cm *ConnectionManager) snapshot() []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	var conns []*Connection
	for _, connections := range cm.variantConnections {
		for conn := range connections {
			conns = append(conns, conn)
		}
	}
	return conns
}

func (cm *ConnectionManager) closeAll() {
	for _, conn := range cm.snapshot() {
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionStats summarizes active connections
type ConnectionStats struct {
	TotalConnections   int            `json:"total_connections"`
	ActiveVariants     int            `json:"active_variants"`
	VariantConnections map[string]int `json:"variant_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveVariants:     len(cm.variantConnections),
		VariantConnections: make(map[string]int),
	}
	for variant, connections := range cm.variantConnections {
		stats.TotalConnections += len(connections)
		stats.VariantConnections[variant] = len(connections)
	}
	return stats
}
