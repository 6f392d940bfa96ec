package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordedEvents) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []EventType
	for _, e := range r.events {
		if e.Type != EventTick {
			types = append(types, e.Type)
		}
	}
	return types
}

type fakeRecorder struct {
	mu          sync.Mutex
	fail        bool
	submissions []models.ScoreSubmission
	entries     []models.LeaderboardEntry
}

func (f *fakeRecorder) RecordScore(_ context.Context, sub models.ScoreSubmission) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.submissions = append(f.submissions, sub)
	return true
}

func (f *fakeRecorder) TopScores(_ context.Context, topN int) ([]models.LeaderboardEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, false
	}
	if topN < len(f.entries) {
		return f.entries[:topN], true
	}
	return f.entries, true
}

func newTestSession(t *testing.T, opts ...SessionOption) (*Session, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	engine := NewEngine(BaseVariant(), WithClock(fc), WithRand(rand.New(rand.NewPCG(3, 4))))
	s := NewSession(engine, opts...)
	t.Cleanup(s.Close)
	return s, fc
}

func waitForTimer(t *testing.T, fc *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
}

func assertNoTimer(t *testing.T, fc *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, fc.BlockUntilContext(ctx, 1), "expected no pending tick")
}

func endGame(t *testing.T, s *Session) {
	t.Helper()
	s.HandleKey(wrongKey(s.Snapshot().TargetSymbol))
	require.Equal(t, PhaseGameOver, s.Snapshot().Phase)
}

func TestSessionStartsInStartPhase(t *testing.T) {
	s, fc := newTestSession(t)

	assert.Equal(t, PhaseStart, s.Snapshot().Phase)
	assert.Equal(t, NoSymbol, s.Snapshot().TargetSymbol)
	assertNoTimer(t, fc)
}

func TestSessionTicksCountDown(t *testing.T) {
	s, fc := newTestSession(t)
	s.Start()

	for i := 1; i <= 3; i++ {
		waitForTimer(t, fc)
		fc.Advance(10 * time.Millisecond)
		want := 700*time.Millisecond - time.Duration(i)*10*time.Millisecond
		require.Eventually(t, func() bool {
			return s.Snapshot().Remaining == want
		}, time.Second, time.Millisecond)
	}
}

func TestSessionLateTicksDoNotStretchRound(t *testing.T) {
	s, fc := newTestSession(t)
	s.Start()
	deadline := s.Snapshot().Deadline

	waitForTimer(t, fc)
	fc.Advance(15 * time.Millisecond)
	require.Eventually(t, func() bool {
		return s.Snapshot().Remaining == 690*time.Millisecond
	}, time.Second, time.Millisecond)

	// The next tick is due 20ms after the symbol appeared, not 10ms after the
	// late one.
	waitForTimer(t, fc)
	fc.Advance(5 * time.Millisecond)
	require.Eventually(t, func() bool {
		return s.Snapshot().Remaining == 680*time.Millisecond
	}, time.Second, time.Millisecond)

	// A long stall is caught up without further clock movement.
	waitForTimer(t, fc)
	fc.Advance(35 * time.Millisecond)
	require.Eventually(t, func() bool {
		return s.Snapshot().Remaining == 650*time.Millisecond
	}, time.Second, time.Millisecond)

	waitForTimer(t, fc)
	fc.Advance(deadline.Sub(fc.Now()))
	require.Eventually(t, func() bool {
		return s.Snapshot().Phase == PhaseGameOver
	}, time.Second, time.Millisecond)
	assert.Equal(t, EndReasonTimeout, s.Snapshot().EndReason)
}

func TestSessionTimesOut(t *testing.T) {
	events := &recordedEvents{}
	s, fc := newTestSession(t, WithObserver(events))
	s.Start()

	for i := 0; i < 70; i++ {
		waitForTimer(t, fc)
		fc.Advance(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return s.Snapshot().Phase == PhaseGameOver
	}, time.Second, time.Millisecond)
	assert.Equal(t, EndReasonTimeout, s.Snapshot().EndReason)
	assert.Equal(t, time.Duration(0), s.Snapshot().Remaining)
	assert.Equal(t, []EventType{EventGameStarted, EventGameOver}, events.types())
	assertNoTimer(t, fc)
}

func TestSessionWrongKeyCancelsTick(t *testing.T) {
	s, fc := newTestSession(t)
	s.Start()
	waitForTimer(t, fc)

	endGame(t, s)
	assertNoTimer(t, fc)

	before := s.Snapshot()
	fc.Advance(time.Second)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, EndReasonWrongKey, before.EndReason)
}

func TestSessionCorrectKeyReplacesTick(t *testing.T) {
	events := &recordedEvents{}
	s, fc := newTestSession(t, WithObserver(events))
	s.Start()
	waitForTimer(t, fc)

	fc.Advance(10 * time.Millisecond)
	require.Eventually(t, func() bool {
		return s.Snapshot().Remaining == 690*time.Millisecond
	}, time.Second, time.Millisecond)
	waitForTimer(t, fc)

	s.HandleKey(s.Snapshot().TargetSymbol)

	snap := s.Snapshot()
	assert.Equal(t, 700*time.Millisecond, snap.Remaining)
	assert.Equal(t, 1, snap.RoundCount)
	assert.Equal(t, 30, snap.Score)
	waitForTimer(t, fc)
	assert.Equal(t, []EventType{EventGameStarted, EventRoundCleared}, events.types())

	events.mu.Lock()
	defer events.mu.Unlock()
	for _, e := range events.events {
		if e.Type == EventRoundCleared {
			assert.Equal(t, TierFast, e.Tier)
		} else {
			assert.Zero(t, e.Tier)
		}
	}
}

func TestSessionDropsStaleTick(t *testing.T) {
	s, fc := newTestSession(t)
	s.Start()
	waitForTimer(t, fc)

	s.mu.Lock()
	stale := s.generation
	s.mu.Unlock()

	s.HandleKey(s.Snapshot().TargetSymbol)
	before := s.Snapshot()

	s.onTick(stale)

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 700*time.Millisecond, s.Snapshot().Remaining)
}

func TestSessionStartIgnoredMidGame(t *testing.T) {
	s, fc := newTestSession(t)
	s.Start()
	waitForTimer(t, fc)
	s.HandleKey(s.Snapshot().TargetSymbol)
	before := s.Snapshot()

	s.Start()

	assert.Equal(t, before, s.Snapshot())
}

func TestSessionRestartAfterGameOver(t *testing.T) {
	s, fc := newTestSession(t)
	s.Start()
	waitForTimer(t, fc)
	s.HandleKey(s.Snapshot().TargetSymbol)
	endGame(t, s)

	s.Restart()

	snap := s.Snapshot()
	assert.Equal(t, PhasePlaying, snap.Phase)
	assert.Equal(t, 0, snap.Score)
	assert.Equal(t, 0, snap.RoundCount)
	assert.Equal(t, EndReasonNone, snap.EndReason)
	waitForTimer(t, fc)
}

func TestSessionKeyPressStartsGame(t *testing.T) {
	s, fc := newTestSession(t)

	s.HandleKey('\n')
	assert.Equal(t, PhaseStart, s.Snapshot().Phase)

	s.HandleKey('k')
	assert.Equal(t, PhasePlaying, s.Snapshot().Phase)
	waitForTimer(t, fc)
}

func TestSessionSubmitScore(t *testing.T) {
	recorder := &fakeRecorder{}
	events := &recordedEvents{}
	id := uuid.New()
	s, fc := newTestSession(t, WithRecorder(recorder), WithObserver(events), WithSessionID(id))

	assert.False(t, s.SubmitScore(context.Background(), "ada"), "no game played")

	s.Start()
	waitForTimer(t, fc)
	fc.Advance(10 * time.Millisecond)
	s.HandleKey(s.Snapshot().TargetSymbol)
	assert.False(t, s.SubmitScore(context.Background(), "ada"), "game still running")

	endGame(t, s)
	require.True(t, s.SubmitScore(context.Background(), " ada "))
	assert.False(t, s.SubmitScore(context.Background(), "ada"), "second submission for the same game")

	require.Len(t, recorder.submissions, 1)
	assert.Equal(t, models.ScoreSubmission{Username: "ada", Score: 30, Variant: "base", Rounds: 1}, recorder.submissions[0])
	assert.Equal(t, []EventType{EventGameStarted, EventRoundCleared, EventGameOver, EventScoreSubmitted}, events.types())
	assert.Equal(t, id, s.ID())

	events.mu.Lock()
	last := events.events[len(events.events)-1]
	events.mu.Unlock()
	assert.Equal(t, EventScoreSubmitted, last.Type)
	assert.Equal(t, "ada", last.Username)
	assert.Equal(t, 30, last.State.Score)

	s.Restart()
	endGame(t, s)
	assert.True(t, s.SubmitScore(context.Background(), "ada"), "new game may be submitted")
}

func TestSessionSubmitScoreRetriesAfterFailure(t *testing.T) {
	recorder := &fakeRecorder{fail: true}
	s, _ := newTestSession(t, WithRecorder(recorder))
	s.Start()
	endGame(t, s)

	assert.False(t, s.SubmitScore(context.Background(), "ada"))

	recorder.mu.Lock()
	recorder.fail = false
	recorder.mu.Unlock()

	assert.True(t, s.SubmitScore(context.Background(), "ada"))
}

func TestSessionSubmitWithoutRecorder(t *testing.T) {
	s, _ := newTestSession(t)
	s.Start()
	endGame(t, s)

	assert.False(t, s.SubmitScore(context.Background(), "ada"))
	entries, ok := s.Leaderboard(context.Background(), 10)
	assert.False(t, ok)
	assert.Nil(t, entries)
}

func TestSessionLeaderboard(t *testing.T) {
	recorder := &fakeRecorder{entries: []models.LeaderboardEntry{
		{Username: "b", Score: 80},
		{Username: "c", Score: 80},
		{Username: "a", Score: 50},
	}}
	s, _ := newTestSession(t, WithRecorder(recorder))

	_, ok := s.Leaderboard(context.Background(), 2)
	assert.False(t, ok, "leaderboard is only shown after a game")

	s.Start()
	endGame(t, s)

	entries, ok := s.Leaderboard(context.Background(), 2)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, []string{entries[0].Username, entries[1].Username})
}

func TestSessionCloseStopsTicks(t *testing.T) {
	s, fc := newTestSession(t)
	s.Start()
	waitForTimer(t, fc)

	s.Close()
	assertNoTimer(t, fc)

	before := s.Snapshot()
	fc.Advance(time.Second)
	s.HandleKey(before.TargetSymbol)
	s.Start()
	assert.Equal(t, before, s.Snapshot())
}

func TestMultiObserver(t *testing.T) {
	first, second := &recordedEvents{}, &recordedEvents{}
	s, _ := newTestSession(t, WithObserver(MultiObserver(first, nil, second)))

	s.Start()
	endGame(t, s)

	want := []EventType{EventGameStarted, EventGameOver}
	assert.Equal(t, want, first.types())
	assert.Equal(t, want, second.types())
}
