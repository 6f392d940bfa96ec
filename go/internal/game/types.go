package game

import (
	"time"
)

// Phase is the coarse state of a game session.
type Phase int

const (
	PhaseStart Phase = iota
	PhasePlaying
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhasePlaying:
		return "playing"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// EndReason records why a session left the Playing phase.
type EndReason string

const (
	EndReasonNone     EndReason = ""
	EndReasonWrongKey EndReason = "wrong_key"
	EndReasonTimeout  EndReason = "timeout"
)

// NoSymbol is the target symbol outside of the Playing phase.
const NoSymbol rune = 0

// RoundState is the complete state of one game session.
// Invariant: TargetSymbol != NoSymbol iff Phase == PhasePlaying.
type RoundState struct {
	Phase            Phase
	TargetSymbol     rune
	SymbolAppearedAt time.Time
	// Deadline is when the timeout tick is due. Only meaningful while
	// Playing.
	Deadline       time.Time
	Remaining      time.Duration
	Score          int
	LastTierPoints int
	LastReaction   time.Duration
	RoundCount     int
	EndReason      EndReason
}

// Outcome describes what a transition did to the state.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeStarted
	OutcomeCleared
	OutcomeTicked
	OutcomeGameOver
)
