package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/omnichat-dev/omnichat/internal/provider"
	"github.com/omnichat-dev/omnichat/internal/stream"
)

func TestDecodeChatFrameContentDelta(t *testing.T) {
	events, err := DecodeChatFrame([]byte(`{"choices":[{"delta":{"content":"Hello"}}]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.TextDelta, events[0].Type)
	require.NotNil(t, events[0].Delta)
	assert.Equal(t, "Hello", *events[0].Delta)
}

func TestDecodeChatFramePresentButEmptyDelta(t *testing.T) {
	events, err := DecodeChatFrame([]byte(`{"choices":[{"delta":{"content":""}}]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Delta, "empty string content is still a delta")
	assert.Equal(t, "", *events[0].Delta)

	events, err = DecodeChatFrame([]byte(`{"choices":[{"delta":{}}]}`))
	require.NoError(t, err)
	assert.Empty(t, events, "absent content field is not a delta")
}

func TestDecodeChatFrameFinishReason(t *testing.T) {
	events, err := DecodeChatFrame([]byte(`{"choices":[{"delta":{},"finish_reason":"stop"}]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.FinishReason, events[0].Type)
	assert.Equal(t, "stop", events[0].Reason)
}

func TestDecodeChatFrameMalformed(t *testing.T) {
	_, err := DecodeChatFrame([]byte(`{"choices":[`))
	assert.Error(t, err)
}

func TestDecodeResponsesFrameLifecycle(t *testing.T) {
	events, err := DecodeResponsesFrame([]byte(`{"type":"response.output_item.added","item":{"id":"item_9","type":"message"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.ItemAdded, events[0].Type)
	assert.Equal(t, "item_9", events[0].ItemID)

	events, err = DecodeResponsesFrame([]byte(`{"type":"response.output_text.delta","item_id":"item_9","delta":"hi"}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "item_9", events[0].ItemID)
	require.NotNil(t, events[0].Delta)

	events, err = DecodeResponsesFrame([]byte(`{"type":"response.completed","response":{"id":"resp_42"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.Completed, events[0].Type)
	assert.Equal(t, "resp_42", events[0].ResponseID)
}

func TestDecodeResponsesFrameFailure(t *testing.T) {
	events, err := DecodeResponsesFrame([]byte(`{"type":"response.failed","error":{"message":"boom"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.Failed, events[0].Type)
	assert.Equal(t, "boom", events[0].Reason)
}

func TestDecodeResponsesFrameToolLifecycle(t *testing.T) {
	events, err := DecodeResponsesFrame([]byte(`{"type":"response.tool_use.started","tool_use":{"type":"web_search_preview"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.ToolStarted, events[0].Type)

	events, err = DecodeResponsesFrame([]byte(`{"type":"response.tool_use.failed","tool_use":{"type":"web_search_preview"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stream.ToolFailed, events[0].Type)

	// Non web-search tools are ignored.
	events, err = DecodeResponsesFrame([]byte(`{"type":"response.tool_use.started","tool_use":{"type":"code_interpreter"}}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDecodeResponsesFrameUnknownTypeIgnored(t *testing.T) {
	events, err := DecodeResponsesFrame([]byte(`{"type":"response.reasoning_summary.delta","delta":"..."}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNewResponsesRequestShape(t *testing.T) {
	temp := 0.8
	body := NewResponsesRequest("gpt-4o", []InputMessage{NewInputMessage([]ContentPart{
		{Type: PartInputImage, ImageURL: "https://img.example/1.png"},
		{Type: PartInputText, Text: "describe this"},
	})}, ResponsesOptions{Temperature: &temp, PreviousResponseID: "resp_1", WebSearch: true})

	assert.Equal(t, "gpt-4o", gjson.GetBytes(body, "model").String())
	assert.True(t, gjson.GetBytes(body, "stream").Bool())
	assert.Equal(t, 0.8, gjson.GetBytes(body, "temperature").Float())
	assert.Equal(t, "resp_1", gjson.GetBytes(body, "previous_response_id").String())
	assert.Equal(t, "web_search_preview", gjson.GetBytes(body, "tools.0.type").String())
	// The injected image part must precede the text part.
	assert.Equal(t, "input_image", gjson.GetBytes(body, "input.0.content.0.type").String())
	assert.Equal(t, "input_text", gjson.GetBytes(body, "input.0.content.1.type").String())
}

func TestNewResponsesRequestOmitsEmptyOptions(t *testing.T) {
	body := NewResponsesRequest("o4-mini", nil, ResponsesOptions{ReasoningEffort: "high"})
	assert.Equal(t, "high", gjson.GetBytes(body, "reasoning.effort").String())
	assert.False(t, gjson.GetBytes(body, "temperature").Exists())
	assert.False(t, gjson.GetBytes(body, "previous_response_id").Exists())
	assert.False(t, gjson.GetBytes(body, "tools").Exists())
}

func TestNewChatRequest(t *testing.T) {
	body := NewChatRequest("o3-mini", []Message{{Role: "system", Content: "be brief"}, {Role: "user", Content: "hi"}}, "high")
	assert.Equal(t, "o3-mini", gjson.GetBytes(body, "model").String())
	assert.Equal(t, "high", gjson.GetBytes(body, "reasoning_effort").String())
	assert.Equal(t, "system", gjson.GetBytes(body, "messages.0.role").String())
}

func TestStreamErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.Client()).WithBaseURL(srv.URL)
	_, err := c.StreamChatCompletions(context.Background(), []byte(`{}`))
	require.Error(t, err)
	var statusErr *provider.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode())
	assert.Contains(t, statusErr.Error(), "Authentication Error")
}

func TestGenerateImageSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/out.png","revised_prompt":"a nicer prompt"}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.Client()).WithBaseURL(srv.URL)
	img, err := c.GenerateImage(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/out.png", img.URL)
	assert.Equal(t, "a nicer prompt", img.RevisedPrompt)
}

func TestGenerateImageMissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.Client()).WithBaseURL(srv.URL)
	_, err := c.GenerateImage(context.Background(), "a cat")
	assert.Error(t, err)
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	c := NewClient("sk-test", nil)
	_, err := c.Synthesize(context.Background(), SpeechRequest{Text: "   "})
	assert.Error(t, err)
}

func TestSynthesizeCachesAudio(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.Client()).WithBaseURL(srv.URL)
	req := SpeechRequest{Text: "hello there, caching test", Voice: "nova"}
	first, err := c.Synthesize(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Synthesize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second call must come from cache")
}
