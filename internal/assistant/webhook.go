package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/chatdeck/chatdeck/pkg/logger"
	"github.com/chatdeck/chatdeck/pkg/metrics"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
)

// WebhookClient talks to a webhook-style assistant endpoint.
type WebhookClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *logger.Logger
}

// payload is the wire format for outbound requests.
type payload struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	Timestamp      string `json:"timestamp"`
	Stream         bool   `json:"stream,omitempty"`
}

// NewWebhookClient creates a webhook client, filling config defaults.
func NewWebhookClient(cfg Config, log *logger.Logger) *WebhookClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	return &WebhookClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     log,
	}
}

// IsConfigured reports whether the endpoint URL is set to something other
// than the placeholder sentinel and carries an HTTP(S) scheme.
func (c *WebhookClient) IsConfigured() bool {
	return c.cfg.URL != PlaceholderURL && strings.HasPrefix(c.cfg.URL, "http")
}

// SendMessage posts the message and returns the decoded JSON response body.
// Transport failures and 5xx answers are retried with exponential backoff up
// to the configured attempt budget; client errors abort immediately.
func (c *WebhookClient) SendMessage(ctx context.Context, text, conversationID string) (any, error) {
	body := payload{
		Message:        text,
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	var decoded any
	attempt := 0

	operation := func() error {
		if attempt > 0 {
			metrics.WebhookRetriesTotal.Inc()
			c.logger.Debugw("retrying webhook request", "attempt", attempt)
		}
		attempt++

		raw, err := c.post(ctx, body)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !retryable(statusErr.Code) {
				return backoff.Permanent(err)
			}
			return err
		}

		if err := json.Unmarshal(raw, &decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryDelay

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(c.cfg.RetryAttempts-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not reach assistant: %w", err)
	}

	return decoded, nil
}

// SendMessageStream posts the message with stream enabled and reads the
// response as newline-delimited JSON. Each line carrying a string "chunk"
// field is handed to callback; malformed lines are skipped. Streams are not
// retried.
func (c *WebhookClient) SendMessageStream(ctx context.Context, text, conversationID string, callback ChunkCallback) error {
	body := payload{
		Message:        text,
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Stream:         true,
	}

	req, err := c.newRequest(ctx, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach assistant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event struct {
			Chunk string `json:"chunk"`
		}
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			c.logger.Debugw("skipping malformed stream line", "line", line)
			continue
		}
		if event.Chunk != "" {
			callback(event.Chunk)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}

	return nil
}

func (c *WebhookClient) newRequest(ctx context.Context, body payload) (*http.Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// post performs one attempt with the per-attempt timeout applied.
func (c *WebhookClient) post(ctx context.Context, body payload) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(attemptCtx, body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordWebhookRequest("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.RecordWebhookRequest(strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return raw, nil
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests
}
