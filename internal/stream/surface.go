package stream

import "time"

// NoticeLevel types a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Surface is the UI collaborator the core drives. The HTTP layer implements
// it by pushing effect frames to the browser over SSE; tests implement it
// with a recorder. Implementations must tolerate being called from the
// stream read loop goroutine.
type Surface interface {
	// ShowThinking displays (or relabels) the busy indicator.
	ShowThinking(label string)
	// HideThinking removes the busy indicator if present.
	HideThinking()
	// CreateMessage creates the assistant message container for id.
	CreateMessage(id string)
	// AppendChunk appends already-escaped text to the message body.
	AppendChunk(id, escaped string)
	// AppendSearchResults renders a structured web-search block into the
	// message without replacing prior text.
	AppendSearchResults(id string, results *SearchResultSet)
	// FinalizeMessage replaces the incrementally built body with the final
	// rendered HTML.
	FinalizeMessage(id, html string)
	// SetReasoning attaches rendered model-thinking HTML to the message.
	SetReasoning(id, html string)
	// SetupActions wires copy/regenerate actions with the raw message text.
	SetupActions(id, rawText string)
	// Notify shows a typed notice. A zero duration means the UI default.
	Notify(level NoticeLevel, message string, duration time.Duration)
	// ShowImage renders a generated image into the message container.
	ShowImage(id, imageURL, caption string)
}
