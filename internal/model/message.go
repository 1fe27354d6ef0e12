package model

import (
	"time"
)

// Role represents the role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation. Content and Role are fixed at
// creation; messages are only ever removed by deleting their conversation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// SendMessageRequest is the request body for sending a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
}
