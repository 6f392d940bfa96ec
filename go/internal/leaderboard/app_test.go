package leaderboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepository struct{}

func (failingRepository) CreateScore(context.Context, CreateScoreParams) (*models.LeaderboardEntry, error) {
	return nil, errors.New("connection refused")
}

func (failingRepository) GetTopScores(context.Context, int) ([]models.LeaderboardEntry, error) {
	return nil, errors.New("connection refused")
}

func usernames(entries []models.LeaderboardEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Username)
	}
	return names
}

func TestSubmitScoreValidation(t *testing.T) {
	tests := []struct {
		name         string
		req          SubmitScoreRequest
		wantErr      error
		wantUsername string
	}{
		{name: "valid", req: SubmitScoreRequest{Username: "bob", Score: 120}, wantUsername: "bob"},
		{name: "trimmed", req: SubmitScoreRequest{Username: "  bob \t", Score: 0}, wantUsername: "bob"},
		{name: "sixteen characters", req: SubmitScoreRequest{Username: strings.Repeat("é", 16), Score: 10}, wantUsername: strings.Repeat("é", 16)},
		{name: "empty", req: SubmitScoreRequest{Username: "", Score: 10}, wantErr: ErrInvalidUsername},
		{name: "blank", req: SubmitScoreRequest{Username: "   ", Score: 10}, wantErr: ErrInvalidUsername},
		{name: "too long", req: SubmitScoreRequest{Username: strings.Repeat("a", 17), Score: 10}, wantErr: ErrInvalidUsername},
		{name: "negative score", req: SubmitScoreRequest{Username: "bob", Score: -10}, wantErr: ErrInvalidScore},
		{name: "negative rounds", req: SubmitScoreRequest{Username: "bob", Score: 10, Rounds: -1}, wantErr: ErrInvalidScore},
		{name: "largest score", req: SubmitScoreRequest{Username: "bob", Score: MaxScore, Rounds: MaxScore}, wantUsername: "bob"},
		{name: "score past int32", req: SubmitScoreRequest{Username: "bob", Score: 1<<32 + 50}, wantErr: ErrInvalidScore},
		{name: "score just past int32", req: SubmitScoreRequest{Username: "bob", Score: MaxScore + 1}, wantErr: ErrInvalidScore},
		{name: "rounds past int32", req: SubmitScoreRequest{Username: "bob", Score: 10, Rounds: MaxScore + 1}, wantErr: ErrInvalidScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository(clockwork.NewFakeClock())
			app := NewApp(repo)

			entry, err := app.SubmitScore(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, IsValidationError(err))

				stored, err := repo.GetTopScores(context.Background(), MaxTopN)
				require.NoError(t, err)
				assert.Empty(t, stored)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsername, entry.Username)
			assert.Equal(t, tt.req.Score, entry.Score)
		})
	}
}

func TestFetchLeaderboardOrdering(t *testing.T) {
	clock := clockwork.NewFakeClock()
	app := NewApp(NewMemoryRepository(clock))
	ctx := context.Background()

	for _, sub := range []SubmitScoreRequest{
		{Username: "a", Score: 50},
		{Username: "b", Score: 80},
		{Username: "c", Score: 80},
	} {
		_, err := app.SubmitScore(ctx, sub)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	entries, err := app.FetchLeaderboard(ctx, 10)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"b", "c", "a"}, usernames(entries)); diff != "" {
		t.Errorf("leaderboard order mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchLeaderboardTiesKeepSubmissionOrder(t *testing.T) {
	app := NewApp(NewMemoryRepository(clockwork.NewFakeClock()))
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		_, err := app.SubmitScore(ctx, SubmitScoreRequest{Username: name, Score: 40})
		require.NoError(t, err)
	}

	entries, err := app.FetchLeaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, usernames(entries))
}

func TestFetchLeaderboardTopN(t *testing.T) {
	faker := gofakeit.New(42)
	clock := clockwork.NewFakeClock()
	app := NewApp(NewMemoryRepository(clock))
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		_, err := app.SubmitScore(ctx, SubmitScoreRequest{
			Username: faker.LetterN(8),
			Score:    faker.IntRange(0, 3000),
		})
		require.NoError(t, err)
		clock.Advance(time.Millisecond)
	}

	tests := []struct {
		topN    int
		wantLen int
	}{
		{topN: 0, wantLen: 10},
		{topN: -3, wantLen: 10},
		{topN: 1, wantLen: 1},
		{topN: 25, wantLen: 25},
		{topN: 100, wantLen: 100},
		{topN: 500, wantLen: 100},
	}

	for _, tt := range tests {
		entries, err := app.FetchLeaderboard(ctx, tt.topN)
		require.NoError(t, err)
		assert.Len(t, entries, tt.wantLen, "topN %d", tt.topN)
		for i := 1; i < len(entries); i++ {
			assert.LessOrEqual(t, compareEntries(entries[i-1], entries[i]), 0, "entries %d and %d out of order", i-1, i)
		}
	}
}

func TestFetchLeaderboardFewerThanTopN(t *testing.T) {
	app := NewApp(NewMemoryRepository(nil))
	ctx := context.Background()

	entries, err := app.FetchLeaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = app.SubmitScore(ctx, SubmitScoreRequest{Username: "solo", Score: 5})
	require.NoError(t, err)

	entries, err = app.FetchLeaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNormalizeTopN(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: 0, want: DefaultTopN},
		{in: -1, want: DefaultTopN},
		{in: 1, want: 1},
		{in: MaxTopN, want: MaxTopN},
		{in: MaxTopN + 1, want: MaxTopN},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTopN(tt.in), "NormalizeTopN(%d)", tt.in)
	}
}

func TestAppWrapsRepositoryErrors(t *testing.T) {
	app := NewApp(failingRepository{})

	_, err := app.SubmitScore(context.Background(), SubmitScoreRequest{Username: "bob", Score: 1})
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "connection refused")

	_, err = app.FetchLeaderboard(context.Background(), 10)
	require.Error(t, err)
}

func TestMemoryRepositoryKeepsMetadata(t *testing.T) {
	app := NewApp(NewMemoryRepository(nil))

	entry, err := app.SubmitScore(context.Background(), SubmitScoreRequest{
		Username: "bob",
		Score:    10,
		Metadata: []byte(`{"source":"cli"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"cli"}`, string(entry.Metadata))
}

func TestAppSubscribe(t *testing.T) {
	app := NewApp(NewMemoryRepository(nil))

	var changed []uuid.UUID
	app.Subscribe(func(id uuid.UUID) {
		changed = append(changed, id)
	})

	_, err := app.SubmitScore(context.Background(), SubmitScoreRequest{Username: "", Score: 10})
	require.Error(t, err)
	assert.Empty(t, changed)

	entry, err := app.SubmitScore(context.Background(), SubmitScoreRequest{Username: "bob", Score: 10})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{entry.ID}, changed)
}
