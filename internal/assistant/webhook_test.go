package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdeck/chatdeck/pkg/logger"
)

func newTestClient(url string) *WebhookClient {
	return NewWebhookClient(Config{
		URL:           url,
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, logger.NewNop())
}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{PlaceholderURL, false},
		{"", false},
		{"ftp://example.com/hook", false},
		{"http://localhost:5678/webhook/abc", true},
		{"https://flows.example.com/webhook/abc", true},
	}

	for _, tt := range tests {
		c := newTestClient(tt.url)
		assert.Equal(t, tt.want, c.IsConfigured(), "url %q", tt.url)
	}
}

func TestSendMessagePayloadShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"output": "pong"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.SendMessage(context.Background(), "ping", "conv-42")
	require.NoError(t, err)

	assert.Equal(t, "ping", got["message"])
	assert.Equal(t, "conv-42", got["conversationId"])
	ts, ok := got["timestamp"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, ts)
	assert.NoError(t, err, "timestamp is RFC 3339")
	assert.NotContains(t, got, "stream")

	body, ok := resp.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pong", body["output"])
}

func TestSendMessageOmitsEmptyConversationID(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendMessage(context.Background(), "ping", "")
	require.NoError(t, err)
	assert.NotContains(t, got, "conversationId")
}

func TestSendMessageRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"output": "eventually"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).SendMessage(context.Background(), "ping", "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())

	body := resp.(map[string]any)
	assert.Equal(t, "eventually", body["output"])
}

func TestSendMessageRetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendMessage(context.Background(), "ping", "")
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load(), "bounded by the attempt budget")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestSendMessageDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendMessage(context.Background(), "ping", "")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSendMessageTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewWebhookClient(Config{
		URL:           srv.URL,
		Timeout:       20 * time.Millisecond,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}, logger.NewNop())

	_, err := c.SendMessage(context.Background(), "ping", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not reach assistant")
}

func TestSendMessageRejectsNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendMessage(context.Background(), "ping", "")
	require.Error(t, err)
}

func TestSendMessageStream(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"chunk": "Hello"}` + "\n"))
		w.Write([]byte("this line is not json\n"))
		w.Write([]byte("\n"))
		w.Write([]byte(`{"status": "thinking"}` + "\n"))
		w.Write([]byte(`{"chunk": ", world"}` + "\n"))
	}))
	defer srv.Close()

	var chunks []string
	err := newTestClient(srv.URL).SendMessageStream(context.Background(), "ping", "conv-1",
		func(chunk string) { chunks = append(chunks, chunk) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", ", world"}, chunks)
	assert.Equal(t, true, got["stream"])
}

func TestSendMessageStreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendMessageStream(context.Background(), "ping", "",
		func(string) {})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}
