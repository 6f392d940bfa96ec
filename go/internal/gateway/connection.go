package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Connection is one WebSocket client playing one game session
type Connection struct {
	ID      uuid.UUID
	Variant string
	Conn    *websocket.Conn
	Manager *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time

	session *game.Session
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

var _ game.Observer = (*Connection)(nil)

// Observe turns session events into frames. It runs under the session lock,
// so it only ever does non-blocking sends.
func (c *Connection) Observe(e game.Event) {
	if e.Type == game.EventScoreSubmitted {
		c.sendMessage(ServerScoreSubmitted, nil, false)
		return
	}

	frame := NewStateFrame(e.SessionID, e.Variant, e.State)
	// A dropped tick frame is superseded by the next one.
	c.sendMessage(ServerState, frame, e.Type == game.EventTick)
}

func (c *Connection) sendSnapshot() {
	frame := NewStateFrame(c.ID, c.session.Variant(), c.session.Snapshot())
	c.sendMessage(ServerState, frame, false)
}

func (c *Connection) sendError(err error) {
	c.sendMessage(ServerError, ErrorData{Message: err.Error()}, false)
}

func (c *Connection) sendMessage(t ServerMessageType, data any, droppable bool) {
	payload, err := encode(t, data)
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Msg("failed to marshal server message")
		return
	}
	c.enqueue(payload, droppable)
}

// enqueue never blocks. When the send buffer is full a droppable frame is
// discarded; anything else means the client is not keeping up and the
// connection is closed.
func (c *Connection) enqueue(payload []byte, droppable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		if droppable {
			log.Debug().Str("connection_id", c.ID.String()).Msg("send buffer full, dropping frame")
			return
		}
		log.Warn().
			Str("connection_id", c.ID.String()).
			Msg("connection send buffer full, closing connection")
		go func() {
			c.Manager.unregisterConnection(c)
			c.Conn.Close()
		}()
	}
}

// close stops further sends and lets writePump finish.
func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.send)
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	cfg := c.Manager.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID.String()).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID.String()).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	cfg := c.Manager.config
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID.String()).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}

// handleClientMessage processes messages received from the client
func (c *Connection) handleClientMessage(message []byte) {
	msg, err := decodeClientMessage(message)
	if err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID.String()).
			Msg("rejected client message")
		c.sendError(err)
		return
	}

	switch msg.Type {
	case ClientKey:
		if !msg.IsCharacter() {
			log.Debug().
				Str("connection_id", c.ID.String()).
				Str("key", msg.Key).
				Msg("ignoring named key")
			return
		}
		if !c.limiter.Allow() {
			c.Manager.deps.Metrics.KeyRateLimited()
			return
		}
		c.session.HandleKey(msg.KeyRune())
	case ClientStart:
		c.session.Start()
	case ClientRestart:
		c.session.Restart()
	case ClientSubmit:
		go c.submitScore(msg.Username)
	case ClientLeaderboard:
		go c.sendLeaderboard(msg.TopN)
	}
}

// submitScore runs off the read loop; the session reports success through
// its observer.
func (c *Connection) submitScore(username string) {
	ctx, cancel := c.recorderContext()
	defer cancel()

	if !c.session.SubmitScore(ctx, username) {
		log.Debug().
			Str("connection_id", c.ID.String()).
			Msg("score not submitted")
	}
}

func (c *Connection) sendLeaderboard(topN int) {
	ctx, cancel := c.recorderContext()
	defer cancel()

	entries, ok := c.session.Leaderboard(ctx, topN)
	if !ok {
		return
	}
	c.sendEntries(entries)
}

func (c *Connection) sendEntries(entries []models.LeaderboardEntry) {
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	c.sendMessage(ServerLeaderboard, entries, false)
}

func (c *Connection) recorderContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.Manager.config.RecorderTimeout)
}

// inGameOver reports whether the session is showing its final score.
func (c *Connection) inGameOver() bool {
	return c.session.Snapshot().Phase == game.PhaseGameOver
}
