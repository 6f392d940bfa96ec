package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/reflex/go/internal/game"
)

// FromGameEvent builds the envelope for a session event. Ticks and unknown
// event types are not published and return false.
func FromGameEvent(e game.Event) (Envelope, bool, error) {
	var payload any
	state := e.State

	switch e.Type {
	case game.EventGameStarted:
		payload = GameStarted{
			Variant:   e.Variant.Name,
			StartedAt: e.At.UTC(),
		}
	case game.EventRoundCleared:
		tier := e.Tier
		if tier.Label == "" {
			tier, _ = game.TierByPoints(state.LastTierPoints)
		}
		payload = RoundCleared{
			Variant:    e.Variant.Name,
			Round:      state.RoundCount,
			ReactionMs: state.LastReaction.Milliseconds(),
			Points:     state.LastTierPoints,
			Tier:       tier.Label,
			Score:      state.Score,
		}
	case game.EventGameOver:
		payload = GameOver{
			Variant: e.Variant.Name,
			Reason:  string(state.EndReason),
			Score:   state.Score,
			Rounds:  state.RoundCount,
			EndedAt: e.At.UTC(),
		}
	case game.EventScoreSubmitted:
		payload = ScoreSubmitted{
			Username: e.Username,
			Variant:  e.Variant.Name,
			Score:    state.Score,
			Rounds:   state.RoundCount,
		}
	default:
		return Envelope{}, false, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, false, fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}

	return Envelope{
		EventID:   uuid.New(),
		EventType: string(e.Type),
		SessionID: e.SessionID,
		Timestamp: e.At.UTC(),
		Payload:   data,
	}, true, nil
}
