package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/reflex/go/internal/leaderboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scores.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadSnapshot(t *testing.T) {
	path := writeSnapshot(t, `[
		{"id": "7d9f3a3e-4f54-4c55-9d0a-31f5b1e2c001", "username": "ada", "score": 240, "variant": "expanding", "rounds": 9, "created_at": "2025-01-02T03:04:05Z"},
		{"username": "linus", "score": 90, "rounds": 4, "metadata": {"source": "import"}}
	]`)

	scores, err := loadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.Equal(t, uuid.MustParse("7d9f3a3e-4f54-4c55-9d0a-31f5b1e2c001"), scores[0].ID)
	assert.Equal(t, "expanding", scores[0].Variant)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), scores[0].CreatedAt)

	assert.NotEqual(t, uuid.Nil, scores[1].ID)
	assert.Equal(t, "base", scores[1].Variant)
	assert.False(t, scores[1].CreatedAt.IsZero())
	assert.JSONEq(t, `{"source":"import"}`, string(scores[1].Metadata))
}

func TestLoadSnapshotRejectsBadEntries(t *testing.T) {
	_, err := loadSnapshot(writeSnapshot(t, `[{"username": "", "score": 10}]`))
	assert.True(t, errors.Is(err, leaderboard.ErrInvalidUsername))

	_, err = loadSnapshot(writeSnapshot(t, `[{"username": "bob", "score": -10}]`))
	assert.True(t, errors.Is(err, leaderboard.ErrInvalidScore))

	_, err = loadSnapshot(writeSnapshot(t, `[{"username": "bob", "score": 4294967346}]`))
	assert.True(t, errors.Is(err, leaderboard.ErrInvalidScore))

	_, err = loadSnapshot(writeSnapshot(t, `{"username": "bob"}`))
	assert.Error(t, err)

	_, err = loadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFakeScores(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	scores := fakeScores(20, 42, now)
	require.Len(t, scores, 20)

	for i, s := range scores {
		assert.NotEmpty(t, s.Username)
		assert.LessOrEqual(t, len([]rune(s.Username)), 16)
		assert.Zero(t, s.Score%10)
		assert.GreaterOrEqual(t, s.Score, s.Rounds*10)
		assert.LessOrEqual(t, s.Score, s.Rounds*30)
		assert.Contains(t, []string{"base", "expanding"}, s.Variant)
		assert.Equal(t, now.Add(-time.Duration(i)*time.Minute), s.CreatedAt)
	}

	again := fakeScores(20, 42, now)
	assert.Equal(t, scores[0].Username, again[0].Username)
}
