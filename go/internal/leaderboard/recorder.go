package leaderboard

import (
	"context"
	"time"

	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ScoreApp defines what the recorder and the RPC service need from App
type ScoreApp interface {
	SubmitScore(ctx context.Context, req SubmitScoreRequest) (*models.LeaderboardEntry, error)
	FetchLeaderboard(ctx context.Context, topN int) ([]models.LeaderboardEntry, error)
}

// Recorder lets a game session talk to the leaderboard. Failures are logged
// and reported as false; they never reach the session.
type Recorder struct {
	app     ScoreApp
	timeout time.Duration
}

var _ game.ScoreRecorder = (*Recorder)(nil)

// NewRecorder bounds every store call by timeout when it is positive.
func NewRecorder(app ScoreApp, timeout time.Duration) *Recorder {
	return &Recorder{
		app:     app,
		timeout: timeout,
	}
}

func (r *Recorder) RecordScore(ctx context.Context, sub models.ScoreSubmission) bool {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	entry, err := r.app.SubmitScore(ctx, SubmitScoreRequest{
		Username: sub.Username,
		Score:    sub.Score,
		Variant:  sub.Variant,
		Rounds:   sub.Rounds,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("username", sub.Username).
			Int("score", sub.Score).
			Msg("failed to record score")
		return false
	}

	log.Debug().
		Str("entry_id", entry.ID.String()).
		Msg("score recorded")
	return true
}

func (r *Recorder) TopScores(ctx context.Context, topN int) ([]models.LeaderboardEntry, bool) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	entries, err := r.app.FetchLeaderboard(ctx, topN)
	if err != nil {
		log.Error().
			Err(err).
			Int("top_n", topN).
			Msg("failed to fetch leaderboard")
		return nil, false
	}
	return entries, true
}

func (r *Recorder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
