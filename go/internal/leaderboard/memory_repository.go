package leaderboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reflex/go/internal/models"
)

// MemoryRepository keeps scores in process. Used for local play and tests.
type MemoryRepository struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	entries []models.LeaderboardEntry
}

func NewMemoryRepository(clock clockwork.Clock) *MemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRepository{
		clock: clock,
	}
}

func (r *MemoryRepository) CreateScore(ctx context.Context, params CreateScoreParams) (*models.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry := models.LeaderboardEntry{
		ID:        uuid.New(),
		Username:  params.Username,
		Score:     params.Score,
		Variant:   variantOrDefault(params.Variant),
		Rounds:    params.Rounds,
		Metadata:  params.Metadata,
		CreatedAt: r.clock.Now(),
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	return &entry, nil
}

func (r *MemoryRepository) GetTopScores(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entries := make([]models.LeaderboardEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	sortEntries(entries)
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}
