package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MaxUsernameLength is the longest username, in characters, a leaderboard accepts.
const MaxUsernameLength = 16

// LeaderboardEntry is one submitted score.
type LeaderboardEntry struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Score     int             `json:"score"`
	Variant   string          `json:"variant,omitempty"`
	Rounds    int             `json:"rounds"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ScoreSubmission is a finished game offered to the leaderboard.
type ScoreSubmission struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	Variant  string `json:"variant,omitempty"`
	Rounds   int    `json:"rounds"`
}
