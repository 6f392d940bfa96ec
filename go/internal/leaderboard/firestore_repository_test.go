package leaderboard

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirestoreEntryID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, firestoreEntryID(id.String()))

	auto := "Xk2v9Qb7LmN3pR5tW8yZ"
	assert.Equal(t, firestoreEntryID(auto), firestoreEntryID(auto))
	assert.NotEqual(t, uuid.Nil, firestoreEntryID(auto))
	assert.NotEqual(t, firestoreEntryID(auto), firestoreEntryID("another-auto-id"))
}

func TestFirestoreRepository(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "reflex-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	collection := "leaderboard_test_" + uuid.NewString()
	app := NewApp(NewFirestoreRepository(client, collection))

	for _, req := range []SubmitScoreRequest{
		{Username: "a", Score: 50},
		{Username: "b", Score: 80, Metadata: []byte(`{"source":"test"}`)},
		{Username: "c", Score: 80},
	} {
		entry, err := app.SubmitScore(ctx, req)
		require.NoError(t, err)
		assert.False(t, entry.CreatedAt.IsZero())
		time.Sleep(10 * time.Millisecond)
	}

	entries, err := app.FetchLeaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, usernames(entries))
	assert.JSONEq(t, `{"source":"test"}`, string(entries[0].Metadata))
}
