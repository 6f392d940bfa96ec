package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/mcdev12/reflex/go/internal/models"
)

// DefaultFirestoreCollection is the collection the web client has always
// written scores to.
const DefaultFirestoreCollection = "leaderboard"

// firestoreIDNamespace derives stable entry IDs for documents that were not
// keyed by a UUID.
var firestoreIDNamespace = uuid.MustParse("6f1d5f0e-52b4-4d0c-9a8e-3c1f7d0a9b21")

type firestoreScore struct {
	Username  string         `firestore:"username"`
	Score     int64          `firestore:"score"`
	Variant   string         `firestore:"variant,omitempty"`
	Rounds    int64          `firestore:"rounds,omitempty"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
	CreatedAt time.Time      `firestore:"createdAt"`
}

type FirestoreRepository struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	if collection == "" {
		collection = DefaultFirestoreCollection
	}
	return &FirestoreRepository{
		client:     client,
		collection: collection,
	}
}

func (r *FirestoreRepository) CreateScore(ctx context.Context, params CreateScoreParams) (*models.LeaderboardEntry, error) {
	data := map[string]any{
		"username":  params.Username,
		"score":     params.Score,
		"createdAt": firestore.ServerTimestamp,
	}
	if params.Variant != "" {
		data["variant"] = params.Variant
	}
	if params.Rounds > 0 {
		data["rounds"] = params.Rounds
	}
	if len(params.Metadata) > 0 {
		var metadata map[string]any
		if err := json.Unmarshal(params.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		data["metadata"] = metadata
	}

	ref := r.client.Collection(r.collection).Doc(uuid.NewString())
	if _, err := ref.Set(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to add leaderboard document: %w", err)
	}

	// Read back so CreatedAt carries the server timestamp.
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard document %s: %w", ref.ID, err)
	}
	entry, err := r.snapshotToModel(snap)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *FirestoreRepository) GetTopScores(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	docs, err := r.client.Collection(r.collection).
		OrderBy("score", firestore.Desc).
		OrderBy("createdAt", firestore.Asc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := r.snapshotToModel(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *FirestoreRepository) snapshotToModel(snap *firestore.DocumentSnapshot) (models.LeaderboardEntry, error) {
	var doc firestoreScore
	if err := snap.DataTo(&doc); err != nil {
		return models.LeaderboardEntry{}, fmt.Errorf("failed to decode leaderboard document %s: %w", snap.Ref.ID, err)
	}

	entry := models.LeaderboardEntry{
		ID:        firestoreEntryID(snap.Ref.ID),
		Username:  doc.Username,
		Score:     int(doc.Score),
		Variant:   variantOrDefault(doc.Variant),
		Rounds:    int(doc.Rounds),
		CreatedAt: doc.CreatedAt,
	}
	if len(doc.Metadata) > 0 {
		raw, err := json.Marshal(doc.Metadata)
		if err != nil {
			return models.LeaderboardEntry{}, fmt.Errorf("failed to encode metadata of %s: %w", snap.Ref.ID, err)
		}
		entry.Metadata = raw
	}
	return entry, nil
}

// firestoreEntryID parses UUID document IDs and maps auto-generated ones onto a
// stable UUID.
func firestoreEntryID(docID string) uuid.UUID {
	if id, err := uuid.Parse(docID); err == nil {
		return id
	}
	return uuid.NewSHA1(firestoreIDNamespace, []byte(docID))
}
