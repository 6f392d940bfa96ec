package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for game sessions
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	catalog           *game.Catalog
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, catalog *game.Catalog) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		catalog:           catalog,
	}
}

// HandlePlay starts a game session over a WebSocket connection
func (h *WebSocketHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("variant")
	variant, err := h.catalog.Get(name)
	if err != nil {
		if errors.Is(err, game.ErrUnknownVariant) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to load variant", http.StatusInternalServerError)
		return
	}

	// On failure the upgrader has already replied to the client.
	if err := h.connectionManager.UpgradeConnection(w, r, variant); err != nil {
		log.Error().
			Err(err).
			Str("variant", variant.Name).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/play", h.HandlePlay)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
