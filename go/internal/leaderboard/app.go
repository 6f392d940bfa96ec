package leaderboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/rs/zerolog/log"
)

// LeaderboardRepository defines what the app layer needs from a score store
type LeaderboardRepository interface {
	CreateScore(ctx context.Context, params CreateScoreParams) (*models.LeaderboardEntry, error)
	GetTopScores(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// MaxScore is the largest score or round count the stores can hold.
const MaxScore = math.MaxInt32

// App handles leaderboard business logic
type App struct {
	repo LeaderboardRepository

	mu       sync.RWMutex
	handlers []ChangeHandler
}

// NewApp creates a new leaderboard App
func NewApp(repo LeaderboardRepository) *App {
	return &App{
		repo: repo,
	}
}

// Subscribe registers a handler called after every stored score. Use it when
// the store has no change feed of its own.
func (a *App) Subscribe(handler ChangeHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = append(a.handlers, handler)
}

// SubmitScore validates and stores a final score
func (a *App) SubmitScore(ctx context.Context, req SubmitScoreRequest) (*models.LeaderboardEntry, error) {
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Score < 0 {
		return nil, fmt.Errorf("validation failed: %w: %d is negative", ErrInvalidScore, req.Score)
	}
	if req.Rounds < 0 {
		return nil, fmt.Errorf("validation failed: %w: rounds %d is negative", ErrInvalidScore, req.Rounds)
	}
	if req.Score > MaxScore || req.Rounds > MaxScore {
		return nil, fmt.Errorf("validation failed: %w: score %d or rounds %d exceeds %d", ErrInvalidScore, req.Score, req.Rounds, MaxScore)
	}

	entry, err := a.repo.CreateScore(ctx, CreateScoreParams{
		Username: username,
		Score:    req.Score,
		Variant:  req.Variant,
		Rounds:   req.Rounds,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create score: %w", err)
	}

	log.Info().
		Str("entry_id", entry.ID.String()).
		Str("username", entry.Username).
		Int("score", entry.Score).
		Str("variant", entry.Variant).
		Msg("score submitted")

	a.mu.RLock()
	for _, h := range a.handlers {
		h(entry.ID)
	}
	a.mu.RUnlock()
	return entry, nil
}

// FetchLeaderboard returns the best topN scores, highest first and oldest
// first among ties.
func (a *App) FetchLeaderboard(ctx context.Context, topN int) ([]models.LeaderboardEntry, error) {
	entries, err := a.repo.GetTopScores(ctx, NormalizeTopN(topN))
	if err != nil {
		return nil, fmt.Errorf("failed to get top scores: %w", err)
	}
	return entries, nil
}

// NormalizeTopN applies the default and the cap to a requested size.
func NormalizeTopN(topN int) int {
	if topN <= 0 {
		return DefaultTopN
	}
	if topN > MaxTopN {
		return MaxTopN
	}
	return topN
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidUsername)
	}
	if !utf8.ValidString(username) {
		return "", fmt.Errorf("%w: username is not valid UTF-8", ErrInvalidUsername)
	}
	if n := utf8.RuneCountInString(username); n > models.MaxUsernameLength {
		return "", fmt.Errorf("%w: %d characters exceeds %d", ErrInvalidUsername, n, models.MaxUsernameLength)
	}
	return username, nil
}
