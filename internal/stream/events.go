// Package stream defines the uniform event model shared by every protocol
// adapter and the per-request session state machine that consumes it. The
// adapters translate vendor-specific wire frames into Events; applying an
// Event to a Session is a pure reduce step whose only side effects go
// through the Surface interface, so the decode logic is testable without
// any transport or UI attached.
package stream

// EventType enumerates the protocol-independent event categories. Vendor
// field names differ but the category meaning is shared across upstreams.
type EventType int

const (
	// TextDelta carries a text fragment to append. Delta is a pointer so a
	// frame with a present-but-empty delta field is distinguishable from a
	// frame without one.
	TextDelta EventType = iota
	// ReasoningDelta carries a fragment of model thinking text (Grok).
	// Reasoning is buffered separately and rendered once at finalize.
	ReasoningDelta
	// ResponseCreated signals the upstream accepted the request and started
	// a response (Responses API).
	ResponseCreated
	// ItemAdded establishes the current output item identifier; later text
	// deltas referencing a different item are ignored (Responses API).
	ItemAdded
	// ToolStarted, ToolFinished and ToolFailed are the web-search tool
	// lifecycle. A failed tool surfaces a warning but never aborts the
	// stream.
	ToolStarted
	ToolFinished
	ToolFailed
	// SearchResults carries a structured web-search result block rendered
	// into the message in addition to the streamed text.
	SearchResults
	// Completed is a successful terminal event, possibly carrying the
	// conversation continuation identifier.
	Completed
	// Failed and Incomplete are upstream-signaled terminal conditions; text
	// accumulated before them is still finalized.
	Failed
	Incomplete
	// FinishReason is the chat-completions style terminal marker.
	FinishReason
	// Blocked is a safety/content-filter termination (Gemini).
	Blocked
)

// Event is the tagged union produced by adapter frame decoding.
type Event struct {
	Type EventType

	// Delta is the text fragment for TextDelta and ReasoningDelta. Nil means
	// the field was absent from the frame; a pointer to "" means it was
	// present but empty.
	Delta *string

	// ItemID scopes TextDelta events and names the item for ItemAdded.
	ItemID string

	// ResponseID is the continuation token carried by Completed events.
	ResponseID string

	// Reason is the finish/failure/block reason, when the upstream gave one.
	Reason string

	// Results is set for SearchResults events.
	Results *SearchResultSet
}

// SearchResultSet is a finished web search with its result entries.
type SearchResultSet struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchResult is a single web-search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// StringPtr returns a pointer to s. Adapters use it to mark delta fields
// that were present in the frame, empty or not.
func StringPtr(s string) *string { return &s }
