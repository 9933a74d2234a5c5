package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures surface effects in call order.
type recorder struct {
	calls    []string
	notices  []string
	appends  []string
	finals   []string
	messages []string
}

func (r *recorder) ShowThinking(label string) { r.calls = append(r.calls, "think:"+label) }
func (r *recorder) HideThinking()             { r.calls = append(r.calls, "hide") }
func (r *recorder) CreateMessage(id string) {
	r.calls = append(r.calls, "create")
	r.messages = append(r.messages, id)
}
func (r *recorder) AppendChunk(id, escaped string) {
	r.calls = append(r.calls, "append")
	r.appends = append(r.appends, escaped)
}
func (r *recorder) AppendSearchResults(id string, results *SearchResultSet) {
	r.calls = append(r.calls, "search-results")
}
func (r *recorder) FinalizeMessage(id, html string) {
	r.calls = append(r.calls, "finalize")
	r.finals = append(r.finals, html)
}
func (r *recorder) SetReasoning(id, html string) { r.calls = append(r.calls, "reasoning") }
func (r *recorder) SetupActions(id, rawText string) {
	r.calls = append(r.calls, "actions")
}
func (r *recorder) Notify(level NoticeLevel, message string, _ time.Duration) {
	r.calls = append(r.calls, "notify:"+string(level))
	r.notices = append(r.notices, message)
}
func (r *recorder) ShowImage(id, imageURL, caption string) {
	r.calls = append(r.calls, "image")
}

func TestEmptyDeltaStillCreatesContainer(t *testing.T) {
	ui := &recorder{}
	s := NewSession()
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("")}, ui)
	assert.True(t, s.Started(), "present-but-empty delta must create the container")
	assert.NotEmpty(t, s.MessageID())
	assert.Empty(t, ui.appends, "no text appended for an empty delta")
}

func TestAbsentDeltaDoesNothing(t *testing.T) {
	ui := &recorder{}
	s := NewSession()
	s.Apply(Event{Type: TextDelta, Delta: nil}, ui)
	assert.False(t, s.Started())
}

func TestStaleItemDeltasIgnored(t *testing.T) {
	ui := &recorder{}
	s := NewScopedSession()
	s.Apply(Event{Type: ItemAdded, ItemID: "item_1"}, ui)
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("keep"), ItemID: "item_1"}, ui)
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("DROP"), ItemID: "item_0"}, ui)
	assert.Equal(t, "keep", s.RawText(), "stale-item delta must not touch the buffer")
}

func TestUnscopedDeltaStaleAfterItemBound(t *testing.T) {
	ui := &recorder{}
	s := NewScopedSession()
	s.Apply(Event{Type: ItemAdded, ItemID: "item_1"}, ui)
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("keep"), ItemID: "item_1"}, ui)
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("DROP")}, ui)
	assert.Equal(t, "keep", s.RawText(), "delta without an item id must be ignored once an item is bound")
}

func TestSecondItemAddedDoesNotRebind(t *testing.T) {
	ui := &recorder{}
	s := NewScopedSession()
	s.Apply(Event{Type: ItemAdded, ItemID: "item_1"}, ui)
	s.Apply(Event{Type: ItemAdded, ItemID: "item_2"}, ui)
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("x"), ItemID: "item_2"}, ui)
	assert.Equal(t, "", s.RawText())
}

func TestFailedAfterDeltasKeepsPartialText(t *testing.T) {
	ui := &recorder{}
	s := NewSession()
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("Hello")}, ui)
	s.Apply(Event{Type: TextDelta, Delta: StringPtr(" world")}, ui)
	s.Apply(Event{Type: Failed, Reason: "server exploded"}, ui)

	raw, ok := s.Finalize(ui)
	require.True(t, ok)
	assert.Equal(t, "Hello world", raw)
	require.Len(t, ui.notices, 1)
	assert.Contains(t, ui.notices[0], "server exploded")

	// The error notice must precede finalization.
	notifyIdx, finalIdx := -1, -1
	for i, c := range ui.calls {
		switch c {
		case "notify:error":
			notifyIdx = i
		case "finalize":
			finalIdx = i
		}
	}
	require.NotEqual(t, -1, notifyIdx)
	require.NotEqual(t, -1, finalIdx)
	assert.Less(t, notifyIdx, finalIdx)
}

func TestFinalizeRunsOnce(t *testing.T) {
	ui := &recorder{}
	s := NewSession()
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("hi")}, ui)
	_, ok := s.Finalize(ui)
	require.True(t, ok)
	_, ok = s.Finalize(ui)
	assert.False(t, ok, "fallback finalize must be a no-op")
	count := 0
	for _, c := range ui.calls {
		if c == "finalize" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFinalizeWithoutContentAddsNothing(t *testing.T) {
	ui := &recorder{}
	s := NewSession()
	s.End()
	_, ok := s.Finalize(ui)
	assert.False(t, ok)
	assert.Empty(t, ui.finals)
}

func TestCompletedCapturesContinuation(t *testing.T) {
	ui := &recorder{}
	s := NewScopedSession()
	s.Apply(Event{Type: Completed, ResponseID: "resp_123"}, ui)
	assert.True(t, s.Ended())
	assert.Equal(t, "resp_123", s.ContinuationID)
}

func TestDecodeFailureAppendsMarkerAndEnds(t *testing.T) {
	ui := &recorder{}
	s := NewSession()
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("partial")}, ui)
	s.FailDecode(ui, errors.New("bad json"))
	assert.True(t, s.Ended())
	require.NotEmpty(t, ui.appends)
	last := ui.appends[len(ui.appends)-1]
	assert.Contains(t, last, "[Error processing response stream]")
	assert.Equal(t, "partial", s.RawText(), "marker stays out of the raw buffer")
}

func TestToolFailureIsNonFatal(t *testing.T) {
	ui := &recorder{}
	s := NewSession()
	s.Apply(Event{Type: ToolStarted}, ui)
	s.Apply(Event{Type: ToolFailed}, ui)
	assert.False(t, s.Ended())
	require.Len(t, ui.notices, 1)
}

func TestEventsAfterEndDropped(t *testing.T) {
	ui := &recorder{}
	s := NewSession()
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("a")}, ui)
	s.End()
	s.Apply(Event{Type: TextDelta, Delta: StringPtr("b")}, ui)
	assert.Equal(t, "a", s.RawText())
}
