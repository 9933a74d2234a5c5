// Package chat holds the conversation session: the mutable app state one
// browser panel operates on, prompt assembly, and the request router that
// picks an upstream adapter for each send.
package chat

import (
	"sync"

	"github.com/omnichat-dev/omnichat/internal/assistant"
	"github.com/omnichat-dev/omnichat/internal/history"
)

// Protocol identifies the upstream request shape a turn was sent through.
// Continuation tokens are only meaningful within one protocol; switching
// protocols drops them.
type Protocol string

const (
	ProtocolNone      Protocol = ""
	ProtocolChat      Protocol = "chat-completions"
	ProtocolResponses Protocol = "responses"
	ProtocolGemini    Protocol = "gemini"
	ProtocolGrok      Protocol = "grok"
)

// State is the explicit per-session state object. Everything the original
// client kept in module globals lives here behind accessors.
type State struct {
	History *history.Store

	mu sync.Mutex

	continuationID string
	lastProtocol   Protocol

	// lastImageURL holds the most recent generated-image URL for one-shot
	// injection into the next multi-modal request.
	lastImageURL string

	active *assistant.Config

	webSearch    bool
	imageGen     bool
	deepResearch bool
}

// NewState returns a session with an empty history and no active assistant.
func NewState() *State {
	return &State{History: history.NewStore()}
}

// Continuation returns the stored continuation token if the last request
// used the given protocol, otherwise empty.
func (s *State) Continuation(p Protocol) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastProtocol != p {
		return ""
	}
	return s.continuationID
}

// StoreContinuation records the protocol of the request that just finished
// and, when non-empty, its continuation token. A protocol switch clears any
// token from the previous protocol.
func (s *State) StoreContinuation(p Protocol, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastProtocol != p {
		s.continuationID = ""
	}
	s.lastProtocol = p
	if id != "" {
		s.continuationID = id
	}
}

// ResetContinuation drops the stored token without touching the protocol.
func (s *State) ResetContinuation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continuationID = ""
}

// RememberImage caches a generated-image URL for injection into the next
// multi-modal request.
func (s *State) RememberImage(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastImageURL = url
}

// ConsumeImage returns the cached generated-image URL and clears it, so the
// image is only ever injected once.
func (s *State) ConsumeImage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := s.lastImageURL
	s.lastImageURL = ""
	return url
}

// ActiveAssistant returns the active assistant config, nil when none.
func (s *State) ActiveAssistant() *assistant.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActiveAssistant switches the active assistant config. Switching resets
// the continuation token: server-side conversation context built under one
// instruction set must not leak into another.
func (s *State) SetActiveAssistant(cfg *assistant.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = cfg
	s.continuationID = ""
}

// Modes returns the current request mode flags.
func (s *State) Modes() (webSearch, imageGen, deepResearch bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webSearch, s.imageGen, s.deepResearch
}

// SetModes replaces the request mode flags.
func (s *State) SetModes(webSearch, imageGen, deepResearch bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webSearch = webSearch
	s.imageGen = imageGen
	s.deepResearch = deepResearch
}

// NewChat clears the conversation: history, continuation token and the
// pending generated image. The active assistant config survives.
func (s *State) NewChat() {
	s.History.Replace(nil)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continuationID = ""
	s.lastProtocol = ProtocolNone
	s.lastImageURL = ""
}

// LoadChat replaces the history wholesale with a saved chat's turns and
// resets the continuation token, which never survives a chat switch.
func (s *State) LoadChat(turns []history.Turn) {
	s.History.Replace(turns)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continuationID = ""
	s.lastProtocol = ProtocolNone
	s.lastImageURL = ""
}
