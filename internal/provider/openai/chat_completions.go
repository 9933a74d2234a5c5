package openai

import (
	"context"
	"encoding/json"
	"io"

	"github.com/tidwall/sjson"

	"github.com/omnichat-dev/omnichat/internal/stream"
)

// Message is one entry of a Chat Completions messages payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatChunk is the frame schema of a Chat Completions stream event. Delta
// fields are pointers: a present-but-empty content string is a valid delta
// and must not look like an absent field.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content          *string `json:"content"`
			ReasoningContent *string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// DecodeChatFrame translates one Chat Completions frame into events.
func DecodeChatFrame(data []byte) ([]stream.Event, error) {
	var chunk chatChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, err
	}
	var events []stream.Event
	for i := range chunk.Choices {
		choice := &chunk.Choices[i]
		if choice.Delta.Content != nil {
			events = append(events, stream.Event{Type: stream.TextDelta, Delta: choice.Delta.Content})
		}
		if choice.Delta.ReasoningContent != nil {
			events = append(events, stream.Event{Type: stream.ReasoningDelta, Delta: choice.Delta.ReasoningContent})
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			events = append(events, stream.Event{Type: stream.FinishReason, Reason: *choice.FinishReason})
		}
	}
	return events, nil
}

// NewChatRequest builds a streaming Chat Completions request body.
// reasoningEffort is attached only when non-empty.
func NewChatRequest(model string, messages []Message, reasoningEffort string) []byte {
	payload := struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
		Stream   bool      `json:"stream"`
	}{Model: model, Messages: messages, Stream: true}
	body, _ := json.Marshal(payload)
	if reasoningEffort != "" {
		body, _ = sjson.SetBytes(body, "reasoning_effort", reasoningEffort)
	}
	return body
}

// StreamChatCompletions opens the Chat Completions stream.
func (c *Client) StreamChatCompletions(ctx context.Context, body []byte) (io.ReadCloser, error) {
	return c.postStream(ctx, "/chat/completions", "Chat Completions", body)
}
