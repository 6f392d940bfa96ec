package leaderboard

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("REFLEX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("REFLEX_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewPostgresRepository(pool)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "schema must be re-appliable")
	_, err = pool.Exec(ctx, "TRUNCATE leaderboard_entries")
	require.NoError(t, err)

	app := NewApp(repo)
	for _, req := range []SubmitScoreRequest{
		{Username: "a", Score: 50},
		{Username: "b", Score: 80, Metadata: []byte(`{"source":"test"}`)},
		{Username: "c", Score: 80, Variant: "expanding", Rounds: 4},
	} {
		_, err := app.SubmitScore(ctx, req)
		require.NoError(t, err)
	}

	entries, err := app.FetchLeaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, usernames(entries))
	assert.JSONEq(t, `{"source":"test"}`, string(entries[0].Metadata))
	assert.Equal(t, "base", entries[0].Variant)
	assert.Equal(t, "expanding", entries[1].Variant)
}
