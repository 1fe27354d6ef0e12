package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdeck/chatdeck/internal/assistant"
	"github.com/chatdeck/chatdeck/internal/chat"
	"github.com/chatdeck/chatdeck/internal/model"
	"github.com/chatdeck/chatdeck/pkg/logger"
)

type stubClient struct{}

func (stubClient) IsConfigured() bool { return true }

func (stubClient) SendMessage(ctx context.Context, text, conversationID string) (any, error) {
	return map[string]any{"output": "reply to: " + text}, nil
}

func (stubClient) SendMessageStream(ctx context.Context, text, conversationID string, callback assistant.ChunkCallback) error {
	return errors.New("not implemented")
}

type nopPersister struct{}

func (nopPersister) Load() ([]*model.Conversation, error) { return []*model.Conversation{}, nil }
func (nopPersister) Save([]*model.Conversation) error     { return nil }

func newTestRouter(t *testing.T) (*chi.Mux, *chat.Store) {
	t.Helper()
	log := logger.NewNop()
	store := chat.NewStore(stubClient{}, nopPersister{}, log)

	conversationHandler := NewConversationHandler(store, log)
	messageHandler := NewMessageHandler(store, log)
	streamHandler := NewStreamHandler(store, log)

	r := chi.NewRouter()
	r.Get("/api/v1/state", conversationHandler.State)
	r.Post("/api/v1/messages", messageHandler.Send)
	r.Post("/api/v1/stop", messageHandler.Stop)
	r.Route("/api/v1/conversations", func(r chi.Router) {
		r.Post("/", conversationHandler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", conversationHandler.Get)
			r.Post("/select", conversationHandler.Select)
			r.Delete("/", conversationHandler.Delete)
			r.Get("/typed", streamHandler.Typed)
		})
	})

	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSendCreatesConversationWhenNoneActive(t *testing.T) {
	r, store := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/messages", `{"content": "first words"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var st chat.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Len(t, st.Conversations, 1, "exactly one conversation is created")
	require.NotNil(t, st.CurrentConversation)
	require.NotEmpty(t, st.CurrentConversation.Messages)
	assert.Equal(t, "first words", st.CurrentConversation.Messages[0].Content)
	assert.Equal(t, model.RoleUser, st.CurrentConversation.Messages[0].Role)

	// The stub replied, so the exchange settled with two messages.
	require.Len(t, st.CurrentConversation.Messages, 2)
	assert.Equal(t, "reply to: first words", st.CurrentConversation.Messages[1].Content)

	// State survives through the store too, not just the response body.
	assert.Len(t, store.State().Conversations, 1)
}

func TestSendRejectsEmptyContent(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/messages", `{"content": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationLifecycle(t *testing.T) {
	r, store := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var conv model.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, "New Chat", conv.Title)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations/"+conv.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/v1/conversations/"+conv.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.State().Conversations)
}

func TestSelectEndpoint(t *testing.T) {
	r, store := newTestRouter(t)

	a := store.CreateNewConversation()
	store.CreateNewConversation()

	rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations/"+a.ID+"/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, a.ID, store.State().CurrentConversation.ID)

	// Selecting an unknown id leaves the pointer where it was.
	rec = doJSON(t, r, http.MethodPost, "/api/v1/conversations/nope/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, a.ID, store.State().CurrentConversation.ID)
}

func TestStopWithoutInFlightSend(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/stop", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTypedStream(t *testing.T) {
	r, store := newTestRouter(t)

	store.CreateNewConversation()
	store.SendMessage(context.Background(), "hi")
	conv := store.State().CurrentConversation
	require.Len(t, conv.Messages, 2)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/typed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: chunk")
	assert.Contains(t, body, "event: done")

	// Reassembling the chunks yields the full assistant message.
	var text strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event struct {
			Chunk string `json:"chunk"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		text.WriteString(event.Chunk)
	}
	assert.Equal(t, conv.Messages[1].Content, text.String())
}

func TestTypedStreamNoAssistantMessage(t *testing.T) {
	r, store := newTestRouter(t)

	conv := store.CreateNewConversation()

	rec := doJSON(t, r, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/typed", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
