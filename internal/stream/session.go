package stream

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/omnichat-dev/omnichat/internal/markdown"
)

// decodeErrorMarker is appended inline to the visible message when a frame
// cannot be decoded. It never enters the raw accumulator, so history keeps
// only genuine model output.
const decodeErrorMarker = "\n\n[Error processing response stream]"

const emptyResponsePlaceholder = "[Empty Response]"

// Session is the transient per-request stream state: accumulated text, the
// lazily created message identity, item scoping and the continuation token.
// It lives from request dispatch until the stream terminates; every terminal
// path runs exactly one finalization pass over whatever was accumulated.
type Session struct {
	acc       *markdown.Accumulator
	reasoning *markdown.Accumulator

	messageID  string
	started    bool
	hasContent bool
	ended      bool
	finalized  bool

	// scopeItems gates deltas on the current item id (Responses API).
	scopeItems    bool
	currentItemID string

	// ContinuationID is the upstream conversation token captured from a
	// successful completion, empty when the protocol has none.
	ContinuationID string
}

// NewSession returns a fresh session with a reset accumulator.
func NewSession() *Session {
	return &Session{
		acc:       markdown.NewAccumulator(),
		reasoning: markdown.NewAccumulator(),
	}
}

// NewScopedSession returns a session that ignores text deltas referencing
// an item other than the one announced by ItemAdded.
func NewScopedSession() *Session {
	s := NewSession()
	s.scopeItems = true
	return s
}

// Ended reports whether a terminal event or decode failure was seen.
func (s *Session) Ended() bool { return s.ended }

// Started reports whether the message container has been created.
func (s *Session) Started() bool { return s.started }

// MessageID returns the UI message identifier, empty until first content.
func (s *Session) MessageID() string { return s.messageID }

// RawText returns the accumulated raw response text.
func (s *Session) RawText() string { return s.acc.RawText() }

func (s *Session) ensureMessage(ui Surface) {
	if s.started {
		return
	}
	s.messageID = uuid.NewString()
	s.started = true
	ui.CreateMessage(s.messageID)
}

// Apply folds one decoded event into the session and emits UI effects.
// Events arriving after the session ended are dropped.
func (s *Session) Apply(ev Event, ui Surface) {
	if s.ended {
		return
	}
	switch ev.Type {
	case TextDelta:
		if ev.Delta == nil {
			return
		}
		// Once an item is bound, a delta that omits the item id is just
		// as stale as one naming a different item.
		if s.scopeItems && ev.ItemID != s.currentItemID {
			log.Debugf("stream: ignoring delta for stale item %s (current %s)", ev.ItemID, s.currentItemID)
			return
		}
		// A present-but-empty delta still creates the container; only
		// non-empty text retires the busy indicator.
		s.ensureMessage(ui)
		if *ev.Delta == "" {
			return
		}
		if !s.hasContent {
			s.hasContent = true
			ui.HideThinking()
		}
		if escaped := s.acc.Accumulate(*ev.Delta); escaped != "" {
			ui.AppendChunk(s.messageID, escaped)
		}
	case ReasoningDelta:
		if ev.Delta == nil || *ev.Delta == "" {
			return
		}
		s.ensureMessage(ui)
		s.reasoning.Accumulate(*ev.Delta)
	case ResponseCreated:
		ui.HideThinking()
	case ItemAdded:
		if s.currentItemID == "" {
			s.currentItemID = ev.ItemID
			s.ensureMessage(ui)
		}
	case ToolStarted:
		ui.ShowThinking("Searching the web...")
	case ToolFinished:
		ui.ShowThinking("Thinking...")
	case ToolFailed:
		ui.ShowThinking("Thinking...")
		ui.Notify(NoticeWarning, "Web search failed to complete.", 0)
	case SearchResults:
		if ev.Results == nil {
			return
		}
		s.ensureMessage(ui)
		ui.HideThinking()
		ui.AppendSearchResults(s.messageID, ev.Results)
	case Completed:
		s.ended = true
		if ev.ResponseID != "" {
			s.ContinuationID = ev.ResponseID
		}
		ui.HideThinking()
	case Failed:
		s.ended = true
		ui.HideThinking()
		reason := ev.Reason
		if reason == "" {
			reason = "Unknown reason"
		}
		ui.Notify(NoticeError, "AI response failed: "+reason, 0)
	case Incomplete:
		s.ended = true
		ui.HideThinking()
		reason := ev.Reason
		if reason == "" {
			reason = "Unknown reason"
		}
		ui.Notify(NoticeWarning, "AI response may be incomplete: "+reason, 0)
	case FinishReason:
		s.ended = true
		if !s.started {
			ui.HideThinking()
		}
		log.Debugf("stream: finished with reason %q", ev.Reason)
	case Blocked:
		s.ended = true
		ui.HideThinking()
		ui.Notify(NoticeWarning, ev.Reason, 0)
	}
}

// End marks the session terminated without a vendor event (the [DONE]
// sentinel or a normal stream close).
func (s *Session) End() { s.ended = true }

// FailDecode records a malformed frame: the inline error marker is appended
// to any already-created message and the session is forced to end. Decode
// errors never propagate past the adapter boundary.
func (s *Session) FailDecode(ui Surface, cause error) {
	log.Errorf("stream: frame decode failed: %v", cause)
	if s.started {
		ui.AppendChunk(s.messageID, markdown.Escape(decodeErrorMarker))
	}
	if !s.hasContent {
		ui.HideThinking()
	}
	s.ended = true
}

// Finalize renders the accumulated buffer and settles the UI. It is
// idempotent: the abnormal-close fallback may call it after the natural
// ENDED transition already did, and the second call is a no-op. The raw
// text is returned for the caller to append to history; ok is false when
// nothing was accumulated and no message container exists, in which case
// nothing should reach history.
func (s *Session) Finalize(ui Surface) (raw string, ok bool) {
	if s.finalized {
		return "", false
	}
	s.finalized = true
	s.ended = true
	ui.HideThinking()
	if !s.started {
		return "", false
	}
	raw = s.acc.RawText()
	html := s.acc.RenderFinal()
	if html == "" {
		html = emptyResponsePlaceholder
	}
	ui.FinalizeMessage(s.messageID, html)
	if thinking := s.reasoning.RawText(); thinking != "" {
		ui.SetReasoning(s.messageID, markdown.Render(thinking))
	}
	ui.SetupActions(s.messageID, raw)
	return raw, true
}
