// Package model defines data structures for the chat client.
package model

import (
	"time"
)

// Conversation is a titled, ordered thread of messages.
//
// Messages are strictly append-ordered. UpdatedAt is refreshed on every
// append, so UpdatedAt >= CreatedAt always holds.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the conversation. The message slice is
// copied so callers can hand clones across goroutine boundaries.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	return &out
}
