package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReplayRoute serves one session's stored events.
const ReplayRoute = "GET /api/sessions/{id}/events"

type SessionReplayer interface {
	ReplaySession(ctx context.Context, sessionID uuid.UUID) ([]Envelope, error)
}

type replayHandler struct {
	replayer SessionReplayer
	timeout  time.Duration
}

func NewReplayHandler(replayer SessionReplayer, timeout time.Duration) http.Handler {
	return &replayHandler{replayer: replayer, timeout: timeout}
}

func (h *replayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	envelopes, err := h.replayer.ReplaySession(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to replay session")
		http.Error(w, "failed to load session events", http.StatusBadGateway)
		return
	}
	if len(envelopes) == 0 {
		http.Error(w, "no events for session", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(envelopes); err != nil {
		log.Error().Err(err).Msg("failed to write session events")
	}
}
