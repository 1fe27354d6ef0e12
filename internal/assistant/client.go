// Package assistant provides the client for the remote assistant webhook.
package assistant

import (
	"context"
	"fmt"
	"time"
)

// PlaceholderURL is the sentinel default meaning "no endpoint configured".
const PlaceholderURL = "YOUR_WEBHOOK_URL"

// ChunkCallback is called for each chunk during a streaming response.
type ChunkCallback func(chunk string)

// Client is the interface for the remote assistant endpoint.
type Client interface {
	// IsConfigured reports whether a real endpoint URL is set.
	IsConfigured() bool

	// SendMessage posts a message and returns the decoded JSON response
	// body verbatim. No shape validation happens at this layer.
	SendMessage(ctx context.Context, text, conversationID string) (any, error)

	// SendMessageStream posts a message with streaming enabled and invokes
	// callback for each chunk of the newline-delimited response.
	SendMessageStream(ctx context.Context, text, conversationID string, callback ChunkCallback) error
}

// Config holds webhook client configuration.
type Config struct {
	URL           string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.Code)
}
