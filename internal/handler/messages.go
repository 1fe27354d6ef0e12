package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chatdeck/chatdeck/internal/chat"
	"github.com/chatdeck/chatdeck/internal/model"
	"github.com/chatdeck/chatdeck/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	store  *chat.Store
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(store *chat.Store, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		store:  store,
		logger: log,
	}
}

// Send handles POST /api/v1/messages
//
// When no conversation is active, one is created first so the message always
// has a home. The call blocks until the exchange settles and returns the
// resulting state snapshot; send failures are absorbed by the store and show
// up only as a conversation without an assistant reply.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if h.store.State().CurrentConversation == nil {
		h.store.CreateNewConversation()
	}

	h.store.SendMessage(r.Context(), content)

	writeJSON(w, http.StatusOK, h.store.State())
}

// Stop handles POST /api/v1/stop
func (h *MessageHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.store.CancelActive()
	w.WriteHeader(http.StatusAccepted)
}
