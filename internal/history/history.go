// Package history owns the conversation log. Turns are append-only; the
// single mutation besides append is the regenerate operation, which deletes
// the most recent turn if and only if it is an assistant turn. Everything
// else sees read-only snapshots.
package history

import (
	"sync"
)

// Role attributes a turn to one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one exchange unit in the conversation.
type Turn struct {
	Role Role `json:"role"`
	// Content is the raw unformatted message text, never null: an empty
	// message is the empty string.
	Content string `json:"content"`
	// ImageData is an inline data-URI image the user attached to this turn.
	ImageData string `json:"imageData,omitempty"`
	// ImageURL is an externally hosted image carried by an assistant turn,
	// e.g. a previous image-generation result.
	ImageURL string `json:"imageUrl,omitempty"`
	// AttachedFilesMeta describes per-turn file attachments; the contents
	// live in the attachment store, not here.
	AttachedFilesMeta []FileMeta `json:"attachedFilesMeta,omitempty"`
}

// FileMeta identifies an attached file by name and MIME type.
type FileMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Store is the ordered turn log for the active chat. All mutation goes
// through Append and RemoveLastAssistant; readers get copies.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewStore returns an empty history.
func NewStore() *Store {
	return &Store{}
}

// Append adds a turn at the end of the log.
func (s *Store) Append(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
}

// Snapshot returns a copy of the whole log in conversation order.
func (s *Store) Snapshot() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len reports the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// LastUserTurn returns a copy of the most recent user turn, if any.
func (s *Store) LastUserTurn() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleUser {
			return s.turns[i], true
		}
	}
	return Turn{}, false
}

// RemoveLastAssistant deletes the most recent turn when it is an assistant
// turn; otherwise it is a no-op. Returns whether a turn was removed.
func (s *Store) RemoveLastAssistant() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.turns); n > 0 && s.turns[n-1].Role == RoleAssistant {
		s.turns = s.turns[:n-1]
		return true
	}
	return false
}

// Replace swaps the whole log, used when loading a stored chat. A nil
// replacement clears the history.
func (s *Store) Replace(turns []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = make([]Turn, len(turns))
	copy(s.turns, turns)
}
