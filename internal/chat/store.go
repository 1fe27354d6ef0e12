// Package chat implements the conversation store, the stateful core of the
// client. It owns the conversation set and the active-conversation pointer,
// mirrors every mutation to durable storage, and brokers sends to the remote
// assistant.
package chat

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatdeck/chatdeck/internal/assistant"
	"github.com/chatdeck/chatdeck/internal/model"
	"github.com/chatdeck/chatdeck/pkg/logger"
	"github.com/chatdeck/chatdeck/pkg/metrics"
)

const (
	defaultTitle   = "New Chat"
	maxTitleLength = 30
)

// Persister is the durable-storage collaborator.
type Persister interface {
	Load() ([]*model.Conversation, error)
	Save(conversations []*model.Conversation) error
}

// State is the snapshot the presentation layer renders from. Conversations
// are deep copies; mutating them does not affect the store.
type State struct {
	Conversations       []*model.Conversation `json:"conversations"`
	CurrentConversation *model.Conversation   `json:"currentConversation"`
	IsLoading           bool                  `json:"isLoading"`
	IsTyping            bool                  `json:"isTyping"`
}

// Store holds the conversation set and the active-conversation pointer.
//
// All mutations are serialized by the store mutex. Sends are single-flight
// store-wide: while one send is in flight, further SendMessage calls are
// no-ops regardless of which conversation they target.
type Store struct {
	mu            sync.Mutex
	conversations []*model.Conversation
	currentID     string
	loading       bool
	typing        bool
	cancelSend    context.CancelFunc

	client  assistant.Client
	persist Persister
	logger  *logger.Logger

	// rng drives demo-mode choices; only touched from the single in-flight
	// send, so it needs no extra locking. Overridable in tests.
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewStore creates a conversation store.
func NewStore(client assistant.Client, persist Persister, log *logger.Logger) *Store {
	return &Store{
		conversations: []*model.Conversation{},
		client:        client,
		persist:       persist,
		logger:        log,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:         sleepCtx,
	}
}

// Restore loads the persisted conversation set. Called once at startup.
func (s *Store) Restore() error {
	conversations, err := s.persist.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conversations = conversations
	s.mu.Unlock()

	s.logger.Infow("conversations restored", "count", len(conversations))
	return nil
}

// Flush writes the current conversation set to durable storage. Called once
// at shutdown; every mutation also saves through the same path.
func (s *Store) Flush() {
	s.save()
}

// CreateNewConversation constructs an empty conversation, prepends it to the
// set (most-recent-first) and makes it active.
func (s *Store) CreateNewConversation() *model.Conversation {
	now := time.Now()
	conv := &model.Conversation{
		ID:        newID(),
		Title:     defaultTitle,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.conversations = append([]*model.Conversation{conv}, s.conversations...)
	s.currentID = conv.ID
	s.mu.Unlock()

	s.save()
	s.logger.Infow("conversation created", "conversation_id", conv.ID)

	return conv.Clone()
}

// SelectConversation makes the matching conversation active. Unknown ids
// leave the active pointer unchanged.
func (s *Store) SelectConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(id) != nil {
		s.currentID = id
	}
}

// DeleteConversation removes the conversation from the set. If it was the
// active one, the active pointer is cleared.
func (s *Store) DeleteConversation(id string) {
	s.mu.Lock()
	kept := s.conversations[:0]
	for _, conv := range s.conversations {
		if conv.ID != id {
			kept = append(kept, conv)
		}
	}
	s.conversations = kept
	if s.currentID == id {
		s.currentID = ""
	}
	s.mu.Unlock()

	s.save()
	s.logger.Infow("conversation deleted", "conversation_id", id)
}

// SendMessage appends content as a user message on the active conversation
// and requests an assistant reply. It is a no-op when no conversation is
// active or another send is in flight. The call blocks until the exchange
// settles; failures are absorbed here (logged, busy flags cleared) and never
// reach the presentation layer.
func (s *Store) SendMessage(ctx context.Context, content string) {
	s.mu.Lock()
	conv := s.findLocked(s.currentID)
	if conv == nil || s.loading {
		s.mu.Unlock()
		return
	}

	s.loading = true
	sendCtx, cancel := context.WithCancel(ctx)
	s.cancelSend = cancel

	now := time.Now()
	userMsg := model.Message{
		ID:        newID(),
		Content:   content,
		Role:      model.RoleUser,
		Timestamp: now,
	}
	conv.Messages = append(conv.Messages, userMsg)
	conv.UpdatedAt = now

	// Title is rewritten exactly once, on the conversation's first message.
	if len(conv.Messages) == 1 {
		conv.Title = titleFromMessage(content)
	}
	conversationID := conv.ID
	s.mu.Unlock()

	s.save()
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	defer func() {
		cancel()
		s.mu.Lock()
		s.loading = false
		s.typing = false
		s.cancelSend = nil
		s.mu.Unlock()
	}()

	s.mu.Lock()
	s.typing = true
	s.mu.Unlock()

	reply, err := s.requestReply(sendCtx, content, conversationID)
	if err != nil {
		// The user message stays appended; there is no rollback.
		s.logger.Errorw("assistant request failed",
			"error", err,
			"conversation_id", conversationID,
		)
		return
	}

	assistantMsg := model.Message{
		ID:        newID(),
		Content:   reply,
		Role:      model.RoleAssistant,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	if c := s.findLocked(conversationID); c != nil {
		c.Messages = append(c.Messages, assistantMsg)
		c.UpdatedAt = assistantMsg.Timestamp
	}
	s.mu.Unlock()

	s.save()
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
}

// CancelActive aborts the in-flight send, if any. The busy flags are cleared
// by the same path as any other send failure.
func (s *Store) CancelActive() {
	s.mu.Lock()
	cancel := s.cancelSend
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// State returns a snapshot of the store for the presentation layer.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := make([]*model.Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		conversations[i] = conv.Clone()
	}

	return State{
		Conversations:       conversations,
		CurrentConversation: s.findLocked(s.currentID).Clone(),
		IsLoading:           s.loading,
		IsTyping:            s.typing,
	}
}

// Conversation returns a copy of the conversation with the given id.
func (s *Store) Conversation(id string) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(id)
	if conv == nil {
		return nil, false
	}
	return conv.Clone(), true
}

func (s *Store) requestReply(ctx context.Context, content, conversationID string) (string, error) {
	if !s.client.IsConfigured() {
		return s.demoReply(ctx)
	}

	raw, err := s.client.SendMessage(ctx, content, conversationID)
	if err != nil {
		return "", err
	}
	return ExtractResponseText(raw), nil
}

func (s *Store) findLocked(id string) *model.Conversation {
	if id == "" {
		return nil
	}
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

// save snapshots the set under the lock and writes outside it. Persistence
// failures are logged, never surfaced; the in-memory state stays the truth
// for the session.
func (s *Store) save() {
	s.mu.Lock()
	snapshot := make([]*model.Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		snapshot[i] = conv.Clone()
	}
	s.mu.Unlock()

	if err := s.persist.Save(snapshot); err != nil {
		s.logger.Warnw("failed to persist conversations", "error", err)
	}
}

func titleFromMessage(content string) string {
	runes := []rune(content)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength]) + "..."
	}
	return content
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
