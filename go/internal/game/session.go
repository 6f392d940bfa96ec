package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/rs/zerolog/log"
)

// EventType names a session state change.
type EventType string

const (
	EventGameStarted    EventType = "game_started"
	EventRoundCleared   EventType = "round_cleared"
	EventTick           EventType = "tick"
	EventGameOver       EventType = "game_over"
	EventScoreSubmitted EventType = "score_submitted"
)

// Event is emitted to the session observer after every state change.
type Event struct {
	Type      EventType
	SessionID uuid.UUID
	Variant   Variant
	State     RoundState
	Tier      Tier   // round_cleared only
	Username  string // score_submitted only
	At        time.Time
}

// Observer receives session events. Observe is called while the session is
// locked and must not block or call back into the session.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// ScoreRecorder is the persistence boundary. Implementations swallow and log
// their own failures and report only whether the call succeeded.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, sub models.ScoreSubmission) bool
	TopScores(ctx context.Context, topN int) ([]models.LeaderboardEntry, bool)
}

type SessionOption func(*Session)

func WithObserver(o Observer) SessionOption {
	return func(s *Session) {
		s.observer = o
	}
}

func WithRecorder(r ScoreRecorder) SessionOption {
	return func(s *Session) {
		s.recorder = r
	}
}

func WithMetrics(m MetricsCollector) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

func WithSessionID(id uuid.UUID) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// Session owns one RoundState and the countdown tick that drives it.
//
// Every transition cancels the pending tick before anything new is
// scheduled, and each tick carries the generation it was scheduled under so a
// tick that already fired but lost the race for the lock is dropped.
type Session struct {
	id       uuid.UUID
	engine   *Engine
	clock    clockwork.Clock
	observer Observer
	recorder ScoreRecorder
	metrics  MetricsCollector

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      RoundState
	generation uint64
	game       uint64
	pending    *pendingTick
	submitted  bool
	closed     bool
}

// NewSession creates a session in the Start phase.
func NewSession(engine *Engine, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.New(),
		engine:   engine,
		clock:    engine.Clock(),
		observer: ObserverFunc(func(Event) {}),
		metrics:  NoOpMetricsCollector{},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Variant() Variant {
	return s.engine.Variant()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() RoundState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a game from Start or GameOver. It is ignored mid-game.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state.Phase == PhasePlaying {
		return
	}
	s.begin(s.engine.Start())
}

// Restart is Start from GameOver.
func (s *Session) Restart() {
	s.Start()
}

// HandleKey feeds one key press into the engine.
func (s *Session) HandleKey(key rune) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	next, outcome := s.engine.OnSymbolInput(s.state, key)
	switch outcome {
	case OutcomeStarted:
		s.begin(next)
	case OutcomeCleared:
		s.state = next
		s.scheduleTick()
		s.metrics.RecordRoundCleared(s.engine.Variant().Name, next.LastTierPoints, next.LastReaction)
		s.emit(EventRoundCleared)
	case OutcomeGameOver:
		s.finish(next)
	}
}

// SubmitScore records the finished game under username. It only acts in
// GameOver and at most once per game; false means no confirmation.
func (s *Session) SubmitScore(ctx context.Context, username string) bool {
	s.mu.Lock()
	if s.closed || s.recorder == nil || s.state.Phase != PhaseGameOver || s.submitted {
		s.mu.Unlock()
		return false
	}
	game := s.game
	sub := models.ScoreSubmission{
		Username: strings.TrimSpace(username),
		Score:    s.state.Score,
		Variant:  s.engine.Variant().Name,
		Rounds:   s.state.RoundCount,
	}
	s.submitted = true
	s.mu.Unlock()

	ok := s.recorder.RecordScore(ctx, sub)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game != game {
		return ok
	}
	if !ok {
		s.submitted = false
		return false
	}
	e := s.event(EventScoreSubmitted)
	e.Username = sub.Username
	s.observer.Observe(e)
	return true
}

// Leaderboard fetches the top scores for display after a game.
func (s *Session) Leaderboard(ctx context.Context, topN int) ([]models.LeaderboardEntry, bool) {
	s.mu.Lock()
	allowed := !s.closed && s.recorder != nil && s.state.Phase == PhaseGameOver
	s.mu.Unlock()
	if !allowed {
		return nil, false
	}
	return s.recorder.TopScores(ctx, topN)
}

// Close stops the countdown for good. Further calls are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancelTick()
	s.cancel()
}

func (s *Session) begin(state RoundState) {
	s.state = state
	s.game++
	s.submitted = false
	s.scheduleTick()
	s.metrics.RecordGameStarted(s.engine.Variant().Name)
	s.emit(EventGameStarted)
}

func (s *Session) finish(state RoundState) {
	s.state = state
	s.cancelTick()
	s.metrics.RecordGameOver(s.engine.Variant().Name, state.EndReason, state.Score, state.RoundCount)
	s.emit(EventGameOver)

	log.Debug().
		Str("session_id", s.id.String()).
		Str("reason", string(state.EndReason)).
		Int("score", state.Score).
		Int("rounds", state.RoundCount).
		Msg("game over")
}

func (s *Session) onTick(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || generation != s.generation {
		log.Debug().
			Str("session_id", s.id.String()).
			Uint64("tick_generation", generation).
			Uint64("generation", s.generation).
			Msg("dropping stale tick")
		return
	}
	s.pending = nil

	next, outcome := s.engine.OnTick(s.state)
	switch outcome {
	case OutcomeTicked:
		s.state = next
		s.scheduleTick()
		s.emit(EventTick)
	case OutcomeGameOver:
		s.finish(next)
	}
}

// scheduleTick replaces any pending tick with a fresh one. Caller holds mu.
func (s *Session) scheduleTick() {
	s.cancelTick()
	generation := s.generation

	ctx, cancel := context.WithCancel(s.ctx)
	timer := s.clock.NewTimer(s.nextTickDelay())
	s.pending = &pendingTick{timer: timer, cancel: cancel}

	go func(t clockwork.Timer) {
		select {
		case <-t.Chan():
			s.onTick(generation)
		case <-ctx.Done():
		}
	}(timer)
}

// nextTickDelay schedules against the round's deadline rather than the
// previous tick, so late tick delivery never stretches a round: the tick that
// takes Remaining to zero is due exactly at Deadline. Caller holds mu.
func (s *Session) nextTickDelay() time.Duration {
	due := s.state.Deadline.Add(s.engine.Variant().TickInterval - s.state.Remaining)
	if delay := due.Sub(s.clock.Now()); delay > 0 {
		return delay
	}
	return 0
}

// cancelTick stops the pending tick and invalidates any tick already in
// flight. Caller holds mu.
func (s *Session) cancelTick() {
	if s.pending != nil {
		s.pending.stop()
		s.pending = nil
	}
	s.generation++
}

func (s *Session) emit(t EventType) {
	s.observer.Observe(s.event(t))
}

func (s *Session) event(t EventType) Event {
	e := Event{
		Type:      t,
		SessionID: s.id,
		Variant:   s.engine.Variant(),
		State:     s.state,
		At:        s.clock.Now(),
	}
	if t == EventRoundCleared {
		e.Tier, _ = TierByPoints(s.state.LastTierPoints)
	}
	return e
}
