// Package persist stores the conversation set in a local bbolt database.
//
// The full conversation set is the unit of persistence: every save rewrites
// the JSON snapshot held under a single fixed key, mirroring the in-memory
// shape with timestamps as RFC 3339 strings.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/chatdeck/chatdeck/internal/model"
	"github.com/chatdeck/chatdeck/pkg/logger"
)

const (
	bucketName = "chat"

	// conversationsKey is the fixed key the whole conversation set lives under.
	conversationsKey = "conversations"
)

// Store is a handle on the durable conversation database.
type Store struct {
	db     *bolt.DB
	logger *logger.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{db: db, logger: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IsOpen reports whether the database handle is usable.
func (s *Store) IsOpen() bool {
	if s.db == nil {
		return false
	}
	return s.db.View(func(*bolt.Tx) error { return nil }) == nil
}

// Load reads the persisted conversation set. A missing bucket or key yields
// an empty set. A snapshot that no longer parses is discarded with a warning
// rather than refusing startup; the next save overwrites it.
func (s *Store) Load() ([]*model.Conversation, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(conversationsKey)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	if len(raw) == 0 {
		return []*model.Conversation{}, nil
	}

	var conversations []*model.Conversation
	if err := json.Unmarshal(raw, &conversations); err != nil {
		s.logger.Warnw("discarding malformed conversation snapshot", "error", err)
		if resetErr := s.reset(); resetErr != nil {
			return nil, fmt.Errorf("failed to reset malformed snapshot: %w", resetErr)
		}
		return []*model.Conversation{}, nil
	}

	return conversations, nil
}

// Save writes the full conversation set under the fixed key.
//
// An empty set is never written: the last non-empty snapshot stays on disk so
// history survives an accidental full deletion within a session. Downstream
// code relies on this, so treat it as part of the contract.
func (s *Store) Save(conversations []*model.Conversation) error {
	if len(conversations) == 0 {
		return nil
	}

	raw, err := json.Marshal(conversations)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return b.Put([]byte(conversationsKey), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to write conversations: %w", err)
	}

	return nil
}

func (s *Store) reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(conversationsKey))
	})
}
