package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/reflex/go/internal/dbconfig"
	"github.com/mcdev12/reflex/go/internal/leaderboard"
	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/sqlc-dev/pqtype"
)

const (
	defaultSnapshot = "go/internal/assets/scores.json"
	fakeCount       = 25
)

// Score mirrors one entry of the JSON snapshot
type Score struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Score     int             `json:"score"`
	Variant   string          `json:"variant"`
	Rounds    int             `json:"rounds"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func main() {
	path := defaultSnapshot
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot, or invent one when there is none
	scores, err := loadSnapshot(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("no snapshot at %s, generating %d fake scores\n", path, fakeCount)
		scores = fakeScores(fakeCount, uint64(time.Now().UnixNano()), time.Now())
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "load snapshot: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig and make sure the table exists
	ctx := context.Background()
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.PoolDSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := leaderboard.NewPostgresRepository(pool).Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	// 3) Insert and count
	var (
		total    = len(scores)
		inserted int
		skipped  int
		errs     int
	)

	for _, s := range scores {
		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO leaderboard_entries (
              id, username, score, variant, rounds, metadata, created_at
            ) VALUES (
              $1,$2,$3,$4,$5,$6,$7
            )
            ON CONFLICT (id) DO NOTHING
        `,
			s.ID, s.Username, int32(s.Score), s.Variant, int32(s.Rounds),
			pqtype.NullRawMessage{RawMessage: s.Metadata, Valid: len(s.Metadata) > 0},
			s.CreatedAt,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting score %s: %v\n", s.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Scores seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}

// loadSnapshot reads and validates a score snapshot. Missing IDs, variants
// and timestamps are filled in.
func loadSnapshot(path string) ([]Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read JSON: %w", err)
	}

	var scores []Score
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}

	now := time.Now().UTC()
	for i := range scores {
		s := &scores[i]
		if s.Username == "" || len([]rune(s.Username)) > models.MaxUsernameLength {
			return nil, fmt.Errorf("entry %d: %w: %q", i, leaderboard.ErrInvalidUsername, s.Username)
		}
		if s.Score < 0 || s.Rounds < 0 || s.Score > leaderboard.MaxScore || s.Rounds > leaderboard.MaxScore {
			return nil, fmt.Errorf("entry %d: %w", i, leaderboard.ErrInvalidScore)
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.Variant == "" {
			s.Variant = "base"
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
	}
	return scores, nil
}

// fakeScores builds n plausible entries. Scores are multiples of ten since
// every cleared round is worth 10, 20 or 30.
func fakeScores(n int, seed uint64, now time.Time) []Score {
	faker := gofakeit.New(seed)
	scores := make([]Score, 0, n)
	for i := 0; i < n; i++ {
		rounds := faker.IntRange(1, 80)
		username := faker.Username()
		if r := []rune(username); len(r) > models.MaxUsernameLength {
			username = string(r[:models.MaxUsernameLength])
		}
		variant := "base"
		if faker.Bool() {
			variant = "expanding"
		}
		scores = append(scores, Score{
			ID:        uuid.New(),
			Username:  username,
			Score:     rounds * 10 * faker.IntRange(1, 3),
			Variant:   variant,
			Rounds:    rounds,
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}
	return scores
}
