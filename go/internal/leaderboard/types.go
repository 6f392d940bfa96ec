package leaderboard

import (
	"encoding/json"

	"github.com/mcdev12/reflex/go/internal/models"
)

const (
	DefaultTopN = 10
	MaxTopN     = 100
)

type SubmitScoreRequest struct {
	Username string          `json:"username"`
	Score    int             `json:"score"`
	Variant  string          `json:"variant,omitempty"`
	Rounds   int             `json:"rounds,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type SubmitScoreResponse struct {
	Entry models.LeaderboardEntry `json:"entry"`
}

type GetLeaderboardRequest struct {
	TopN int `json:"top_n"`
}

type GetLeaderboardResponse struct {
	Entries []models.LeaderboardEntry `json:"entries"`
}

// CreateScoreParams is what a repository stores. The repository assigns the
// creation time.
type CreateScoreParams struct {
	Username string
	Score    int
	Variant  string
	Rounds   int
	Metadata json.RawMessage
}
