package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatdeck/chatdeck/internal/chat"
	"github.com/chatdeck/chatdeck/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	store  *chat.Store
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(store *chat.Store, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  store,
		logger: log,
	}
}

// State handles GET /api/v1/state
func (h *ConversationHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State())
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	conv := h.store.CreateNewConversation()
	writeJSON(w, http.StatusCreated, conv)
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, ok := h.store.Conversation(id)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Select handles POST /api/v1/conversations/{id}/select
//
// Selecting an unknown id is not an error; the active pointer simply stays
// where it was, matching the store contract.
func (h *ConversationHandler) Select(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.store.SelectConversation(id)
	writeJSON(w, http.StatusOK, h.store.State())
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.store.DeleteConversation(id)
	w.WriteHeader(http.StatusNoContent)
}
