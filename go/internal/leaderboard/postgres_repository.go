package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/reflex/go/internal/models"
	"github.com/sqlc-dev/pqtype"
)

// NotifyChannel is the LISTEN/NOTIFY channel the schema trigger publishes new
// entry IDs on.
const NotifyChannel = "leaderboard_changed"

// Schema creates the leaderboard table and the insert trigger. It is safe to
// apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS leaderboard_entries (
    id         UUID PRIMARY KEY,
    username   VARCHAR(16) NOT NULL,
    score      INTEGER NOT NULL CHECK (score >= 0),
    variant    TEXT NOT NULL DEFAULT 'base',
    rounds     INTEGER NOT NULL DEFAULT 0,
    metadata   JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS leaderboard_entries_rank_idx
    ON leaderboard_entries (score DESC, created_at ASC);

CREATE OR REPLACE FUNCTION notify_leaderboard_changed() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('` + NotifyChannel + `', NEW.id::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS leaderboard_entries_notify ON leaderboard_entries;
CREATE TRIGGER leaderboard_entries_notify
    AFTER INSERT ON leaderboard_entries
    FOR EACH ROW EXECUTE FUNCTION notify_leaderboard_changed();
`

const createScore = `
INSERT INTO leaderboard_entries (id, username, score, variant, rounds, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, username, score, variant, rounds, metadata, created_at
`

const getTopScores = `
SELECT id, username, score, variant, rounds, metadata, created_at
FROM leaderboard_entries
ORDER BY score DESC, created_at ASC
LIMIT $1
`

// DBTX is the subset of *pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db DBTX
}

func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// Migrate applies Schema.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply leaderboard schema: %w", err)
	}
	return nil
}

type scoreRow struct {
	ID        uuid.UUID
	Username  string
	Score     int32
	Variant   string
	Rounds    int32
	Metadata  pqtype.NullRawMessage
	CreatedAt time.Time
}

func (r *PostgresRepository) CreateScore(ctx context.Context, params CreateScoreParams) (*models.LeaderboardEntry, error) {
	var row scoreRow
	err := r.db.QueryRow(ctx, createScore,
		uuid.New(),
		params.Username,
		int32(params.Score),
		variantOrDefault(params.Variant),
		int32(params.Rounds),
		pqtype.NullRawMessage{RawMessage: params.Metadata, Valid: len(params.Metadata) > 0},
	).Scan(&row.ID, &row.Username, &row.Score, &row.Variant, &row.Rounds, &row.Metadata, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert leaderboard entry: %w", err)
	}

	entry := r.dbEntryToModel(row)
	return &entry, nil
}

func (r *PostgresRepository) GetTopScores(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, getTopScores, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var row scoreRow
		if err := rows.Scan(&row.ID, &row.Username, &row.Score, &row.Variant, &row.Rounds, &row.Metadata, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, r.dbEntryToModel(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top scores: %w", err)
	}
	return entries, nil
}

func (r *PostgresRepository) dbEntryToModel(row scoreRow) models.LeaderboardEntry {
	entry := models.LeaderboardEntry{
		ID:        row.ID,
		Username:  row.Username,
		Score:     int(row.Score),
		Variant:   row.Variant,
		Rounds:    int(row.Rounds),
		CreatedAt: row.CreatedAt,
	}
	if row.Metadata.Valid {
		entry.Metadata = row.Metadata.RawMessage
	}
	return entry
}

func variantOrDefault(variant string) string {
	if variant == "" {
		return "base"
	}
	return variant
}
