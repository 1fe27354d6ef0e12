package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatdeck/chatdeck/internal/chat"
	"github.com/chatdeck/chatdeck/internal/model"
	"github.com/chatdeck/chatdeck/pkg/logger"
	"github.com/chatdeck/chatdeck/pkg/metrics"
)

// typeInterval paces the typed-text replay, a few characters per event.
const (
	typeInterval  = 30 * time.Millisecond
	typeChunkSize = 3
)

// StreamHandler serves the SSE typed-text replay of assistant messages.
type StreamHandler struct {
	store  *chat.Store
	logger *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(store *chat.Store, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		store:  store,
		logger: log,
	}
}

// Typed handles GET /api/v1/conversations/{id}/typed
//
// Replays the last assistant message of the conversation as an SSE stream of
// small "chunk" events followed by a "done" event, giving the front end its
// typewriter animation without client-side timers.
func (h *StreamHandler) Typed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	conv, ok := h.store.Conversation(conversationID)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	msg := lastAssistantMessage(conv)
	if msg == nil {
		writeError(w, http.StatusNotFound, "no assistant message to replay")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	ticker := time.NewTicker(typeInterval)
	defer ticker.Stop()

	runes := []rune(msg.Content)
	for i := 0; i < len(runes); i += typeChunkSize {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		end := i + typeChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		sendSSEEvent(w, flusher, "chunk", map[string]string{
			"chunk": string(runes[i:end]),
		})
	}

	sendSSEEvent(w, flusher, "done", map[string]string{
		"message_id": msg.ID,
	})
}

func lastAssistantMessage(conv *model.Conversation) *model.Message {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == model.RoleAssistant {
			return &conv.Messages[i]
		}
	}
	return nil
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, raw)
	flusher.Flush()
}
