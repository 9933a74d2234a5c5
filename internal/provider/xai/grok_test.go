package xai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/omnichat-dev/omnichat/internal/provider/openai"
	"github.com/omnichat-dev/omnichat/internal/stream"
)

func TestNewChatRequestReasoningEffort(t *testing.T) {
	body := NewChatRequest(ReasoningModel, []openai.Message{{Role: "user", Content: "hi"}})
	assert.Equal(t, "high", gjson.GetBytes(body, "reasoning_effort").String())

	body = NewChatRequest("grok-3", nil)
	assert.False(t, gjson.GetBytes(body, "reasoning_effort").Exists())
	assert.True(t, gjson.GetBytes(body, "stream").Bool())
}

func TestDecodeFrameReasoningContent(t *testing.T) {
	events, err := DecodeFrame([]byte(`{"choices":[{"delta":{"reasoning_content":"thinking..."}}]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.ReasoningDelta, events[0].Type)
	assert.Equal(t, "thinking...", *events[0].Delta)
}

func TestDecodeFrameMixedDeltas(t *testing.T) {
	events, err := DecodeFrame([]byte(`{"choices":[{"delta":{"content":"answer","reasoning_content":"why"}}]}`))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, stream.TextDelta, events[0].Type)
	assert.Equal(t, stream.ReasoningDelta, events[1].Type)
}
