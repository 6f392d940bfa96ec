package game

import (
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

// Engine holds the round rules for one variant. Its transitions take a
// RoundState by value and return the next one; they never fail.
//
// An Engine is not safe for concurrent use: the random source is unguarded.
// Session serializes access.
type Engine struct {
	variant Variant
	clock   clockwork.Clock
	rng     *rand.Rand
}

type EngineOption func(*Engine)

// WithClock overrides the real clock, mostly for tests.
func WithClock(clock clockwork.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRand overrides the random source used for symbol draws.
func WithRand(rng *rand.Rand) EngineOption {
	return func(e *Engine) {
		e.rng = rng
	}
}

// NewEngine creates an engine for a validated variant.
func NewEngine(variant Variant, opts ...EngineOption) *Engine {
	e := &Engine{
		variant: variant,
		clock:   clockwork.NewRealClock(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Variant() Variant {
	return e.variant
}

func (e *Engine) Clock() clockwork.Clock {
	return e.clock
}

// Start begins a fresh game: score and round count reset, the neutral tier is
// shown, and the first symbol is drawn.
func (e *Engine) Start() RoundState {
	s := RoundState{
		Phase:          PhasePlaying,
		LastTierPoints: TierFast.Points,
	}
	return e.nextSymbol(s, e.clock.Now())
}

// OnSymbolInput applies one key press. Unprintable input is ignored in every
// phase. From Start any printable key begins the game; in GameOver keys are
// ignored until a restart.
func (e *Engine) OnSymbolInput(s RoundState, received rune) (RoundState, Outcome) {
	if !acceptsSymbol(received) {
		return s, OutcomeIgnored
	}

	switch s.Phase {
	case PhaseStart:
		return e.Start(), OutcomeStarted
	case PhaseGameOver:
		return s, OutcomeIgnored
	}

	if received != s.TargetSymbol {
		return end(s, EndReasonWrongKey), OutcomeGameOver
	}

	now := e.clock.Now()
	reaction := now.Sub(s.SymbolAppearedAt)
	tier := ClassifyReaction(reaction, e.variant.Thresholds)

	s.Score += tier.Points
	s.LastTierPoints = tier.Points
	s.LastReaction = reaction
	s.RoundCount++
	return e.nextSymbol(s, now), OutcomeCleared
}

// OnTick consumes one tick interval of the countdown.
func (e *Engine) OnTick(s RoundState) (RoundState, Outcome) {
	if s.Phase != PhasePlaying {
		return s, OutcomeIgnored
	}

	s.Remaining -= e.variant.TickInterval
	if s.Remaining <= 0 {
		s.Remaining = 0
		return end(s, EndReasonTimeout), OutcomeGameOver
	}
	return s, OutcomeTicked
}

// nextSymbol draws uniformly from the current alphabet. The previous symbol
// is not excluded, so immediate repeats happen.
func (e *Engine) nextSymbol(s RoundState, now time.Time) RoundState {
	alphabet := e.variant.Alphabet(s.RoundCount)
	s.TargetSymbol = alphabet[e.rng.IntN(len(alphabet))]
	s.SymbolAppearedAt = now
	s.Deadline = now.Add(e.variant.RoundDuration)
	s.Remaining = e.variant.RoundDuration
	return s
}

func end(s RoundState, reason EndReason) RoundState {
	s.Phase = PhaseGameOver
	s.TargetSymbol = NoSymbol
	s.Deadline = time.Time{}
	s.EndReason = reason
	return s
}
