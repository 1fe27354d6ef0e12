package handler

import (
	"net/http"

	"github.com/chatdeck/chatdeck/internal/persist"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	persist *persist.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(persist *persist.Store) *HealthHandler {
	return &HealthHandler{
		persist: persist,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.persist == nil || !h.persist.IsOpen() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database not open",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
