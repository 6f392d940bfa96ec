package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/mcdev12/reflex/go/internal/models"
)

// ClientMessageType identifies a message sent by the browser.
type ClientMessageType string

const (
	ClientKey         ClientMessageType = "key"
	ClientStart       ClientMessageType = "start"
	ClientRestart     ClientMessageType = "restart"
	ClientSubmit      ClientMessageType = "submit"
	ClientLeaderboard ClientMessageType = "leaderboard"
)

// ServerMessageType identifies a message pushed to the browser.
type ServerMessageType string

const (
	ServerState          ServerMessageType = "state"
	ServerScoreSubmitted ServerMessageType = "score_submitted"
	ServerLeaderboard    ServerMessageType = "leaderboard"
	ServerError          ServerMessageType = "error"
)

var errMalformedMessage = errors.New("malformed message")

type ClientMessage struct {
	Type     ClientMessageType `json:"type"`
	Key      string            `json:"key,omitempty"`
	Username string            `json:"username,omitempty"`
	TopN     int               `json:"top_n,omitempty"`
}

// IsCharacter reports whether a key message carries one printable
// character. Browsers also send named keys such as "Shift" or "Enter".
func (m ClientMessage) IsCharacter() bool {
	return utf8.RuneCountInString(m.Key) == 1
}

// KeyRune returns the single character carried by a key message.
func (m ClientMessage) KeyRune() rune {
	r, _ := utf8.DecodeRuneInString(m.Key)
	return r
}

type ServerMessage struct {
	Type ServerMessageType `json:"type"`
	Data any               `json:"data,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// StateFrame is everything the renderer needs to draw one frame.
type StateFrame struct {
	SessionID      uuid.UUID      `json:"session_id"`
	Variant        string         `json:"variant"`
	Phase          string         `json:"phase"`
	Symbol         string         `json:"symbol,omitempty"`
	Score          int            `json:"score"`
	LastTierPoints int            `json:"last_tier_points"`
	RoundCount     int            `json:"round_count"`
	RemainingMs    int64          `json:"remaining_ms"`
	EndReason      string         `json:"end_reason,omitempty"`
	Countdown      game.Countdown `json:"countdown"`
}

func NewStateFrame(sessionID uuid.UUID, variant game.Variant, s game.RoundState) StateFrame {
	frame := StateFrame{
		SessionID:      sessionID,
		Variant:        variant.Name,
		Phase:          s.Phase.String(),
		Score:          s.Score,
		LastTierPoints: s.LastTierPoints,
		RoundCount:     s.RoundCount,
		RemainingMs:    s.Remaining.Milliseconds(),
		EndReason:      string(s.EndReason),
		Countdown:      game.CountdownFor(s, variant.RoundDuration),
	}
	if s.TargetSymbol != game.NoSymbol {
		frame.Symbol = string(s.TargetSymbol)
	}
	return frame
}

func decodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", errMalformedMessage, err)
	}

	switch msg.Type {
	case ClientKey:
		if msg.Key == "" {
			return ClientMessage{}, fmt.Errorf("%w: key is required", errMalformedMessage)
		}
	case ClientSubmit:
		if strings.TrimSpace(msg.Username) == "" {
			return ClientMessage{}, fmt.Errorf("%w: username is required", errMalformedMessage)
		}
		if utf8.RuneCountInString(strings.TrimSpace(msg.Username)) > models.MaxUsernameLength {
			return ClientMessage{}, fmt.Errorf("%w: username is longer than %d characters", errMalformedMessage, models.MaxUsernameLength)
		}
	case ClientStart, ClientRestart, ClientLeaderboard:
	case "":
		return ClientMessage{}, fmt.Errorf("%w: type is required", errMalformedMessage)
	default:
		return ClientMessage{}, fmt.Errorf("%w: unknown type %q", errMalformedMessage, msg.Type)
	}
	return msg, nil
}

func encode(t ServerMessageType, data any) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: t, Data: data})
}
