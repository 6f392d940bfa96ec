package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form of every published event.
type Envelope struct {
	EventID   uuid.UUID       `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID uuid.UUID       `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type GameStarted struct {
	Variant   string    `json:"variant"`
	StartedAt time.Time `json:"startedAt"`
}

type RoundCleared struct {
	Variant    string `json:"variant"`
	Round      int    `json:"round"`
	ReactionMs int64  `json:"reactionMs"`
	Points     int    `json:"points"`
	Tier       string `json:"tier"`
	Score      int    `json:"score"`
}

type GameOver struct {
	Variant string    `json:"variant"`
	Reason  string    `json:"reason"`
	Score   int       `json:"score"`
	Rounds  int       `json:"rounds"`
	EndedAt time.Time `json:"endedAt"`
}

type ScoreSubmitted struct {
	Username string `json:"username"`
	Variant  string `json:"variant"`
	Score    int    `json:"score"`
	Rounds   int    `json:"rounds"`
}

// EventPublisher delivers envelopes to a downstream system.
type EventPublisher interface {
	Publish(ctx context.Context, env Envelope) error
}
