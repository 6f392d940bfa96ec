package leaderboard

import (
	"cmp"
	"slices"

	"github.com/mcdev12/reflex/go/internal/models"
)

// compareEntries orders by score descending, then submission time ascending.
func compareEntries(a, b models.LeaderboardEntry) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

func sortEntries(entries []models.LeaderboardEntry) {
	slices.SortStableFunc(entries, compareEntries)
}
