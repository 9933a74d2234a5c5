// Package store persists named chats and assistant configurations in a
// local bbolt database.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/omnichat-dev/omnichat/internal/assistant"
	"github.com/omnichat-dev/omnichat/internal/history"
)

var (
	bucketChats      = []byte("chats")
	bucketAssistants = []byte("assistants")
)

// SavedChat is a named snapshot of one conversation.
type SavedChat struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	SavedAt time.Time      `json:"savedAt"`
	Turns   []history.Turn `json:"turns"`
}

// ChatSummary is the listing view of a saved chat, without the turn log.
type ChatSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SavedAt   time.Time `json:"savedAt"`
	TurnCount int       `json:"turnCount"`
}

// Store is a long-lived handle on the chat database.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at path and ensures the
// buckets exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errBucket := tx.CreateBucketIfNotExists(bucketChats); errBucket != nil {
			return errBucket
		}
		_, errBucket := tx.CreateBucketIfNotExists(bucketAssistants)
		return errBucket
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveChat stores the turns under a new id and returns the saved record.
func (s *Store) SaveChat(name string, turns []history.Turn) (*SavedChat, error) {
	chat := &SavedChat{
		ID:      uuid.NewString(),
		Name:    name,
		SavedAt: time.Now().UTC(),
		Turns:   turns,
	}
	enc, err := json.Marshal(chat)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).Put([]byte(chat.ID), enc)
	})
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// LoadChat returns the saved chat for id, or an error when it is unknown.
func (s *Store) LoadChat(id string) (*SavedChat, error) {
	var chat *SavedChat
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketChats).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("chat %s not found", id)
		}
		chat = &SavedChat{}
		return json.Unmarshal(v, chat)
	})
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// ListChats returns summaries of every saved chat. Malformed records are
// skipped instead of failing the whole listing.
func (s *Store) ListChats() ([]ChatSummary, error) {
	var out []ChatSummary
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).ForEach(func(k, v []byte) error {
			var chat SavedChat
			if errUnmarshal := json.Unmarshal(v, &chat); errUnmarshal != nil {
				log.Warnf("store: skipping malformed chat record %s: %v", string(k), errUnmarshal)
				return nil
			}
			out = append(out, ChatSummary{ID: chat.ID, Name: chat.Name, SavedAt: chat.SavedAt, TurnCount: len(chat.Turns)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteChat removes the saved chat for id. Deleting an unknown id is not
// an error.
func (s *Store) DeleteChat(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChats).Delete([]byte(id))
	})
}

// SaveAssistant stores (or overwrites) an assistant configuration,
// assigning an id when the config has none.
func (s *Store) SaveAssistant(cfg *assistant.Config) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	enc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssistants).Put([]byte(cfg.ID), enc)
	})
}

// LoadAssistant returns the assistant config for id.
func (s *Store) LoadAssistant(id string) (*assistant.Config, error) {
	var cfg *assistant.Config
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAssistants).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("assistant %s not found", id)
		}
		cfg = &assistant.Config{}
		return json.Unmarshal(v, cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListAssistants returns every stored assistant configuration.
func (s *Store) ListAssistants() ([]*assistant.Config, error) {
	var out []*assistant.Config
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssistants).ForEach(func(k, v []byte) error {
			var cfg assistant.Config
			if errUnmarshal := json.Unmarshal(v, &cfg); errUnmarshal != nil {
				log.Warnf("store: skipping malformed assistant record %s: %v", string(k), errUnmarshal)
				return nil
			}
			out = append(out, &cfg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAssistant removes the assistant config for id.
func (s *Store) DeleteAssistant(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssistants).Delete([]byte(id))
	})
}
