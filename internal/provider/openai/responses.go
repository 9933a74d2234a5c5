package openai

import (
	"context"
	"encoding/json"
	"io"

	"github.com/tidwall/sjson"

	"github.com/omnichat-dev/omnichat/internal/stream"
)

// Content part types of a Responses API input message.
const (
	PartInputText  = "input_text"
	PartInputImage = "input_image"
)

// ContentPart is one ordered element of an input message: a text block or
// an image reference (https URL or data URI, both carried in image_url).
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// InputMessage is the single user message sent to the Responses API; prior
// context travels through previous_response_id instead of being resent.
type InputMessage struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// NewInputMessage wraps content parts in the standard message envelope.
func NewInputMessage(parts []ContentPart) InputMessage {
	return InputMessage{Type: "message", Role: "user", Content: parts}
}

// ResponsesOptions are the per-request knobs of the Responses API payload.
type ResponsesOptions struct {
	// Temperature is attached when non-nil (the reasoning models reject it).
	Temperature *float64
	// ReasoningEffort is attached as reasoning.effort when non-empty.
	ReasoningEffort string
	// PreviousResponseID resumes server-side conversation context.
	PreviousResponseID string
	// WebSearch attaches the web_search_preview tool.
	WebSearch bool
}

// NewResponsesRequest builds a streaming Responses API request body.
func NewResponsesRequest(model string, input []InputMessage, opts ResponsesOptions) []byte {
	payload := struct {
		Model  string         `json:"model"`
		Input  []InputMessage `json:"input"`
		Stream bool           `json:"stream"`
	}{Model: model, Input: input, Stream: true}
	body, _ := json.Marshal(payload)
	if opts.Temperature != nil {
		body, _ = sjson.SetBytes(body, "temperature", *opts.Temperature)
	}
	if opts.ReasoningEffort != "" {
		body, _ = sjson.SetBytes(body, "reasoning.effort", opts.ReasoningEffort)
	}
	if opts.PreviousResponseID != "" {
		body, _ = sjson.SetBytes(body, "previous_response_id", opts.PreviousResponseID)
	}
	if opts.WebSearch {
		body, _ = sjson.SetBytes(body, "tools.0.type", "web_search_preview")
	}
	return body
}

// responsesFrame is the typed schema of a Responses API stream event.
type responsesFrame struct {
	Type  string  `json:"type"`
	Delta *string `json:"delta"`
	// ItemID scopes output_text deltas to one output item.
	ItemID string `json:"item_id"`
	Item   *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"item"`
	Response *struct {
		ID string `json:"id"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Reason  string `json:"reason"`
	ToolUse *struct {
		Type   string                  `json:"type"`
		Output *stream.SearchResultSet `json:"output"`
	} `json:"tool_use"`
	Data *stream.SearchResultSet `json:"data"`
}

// DecodeResponsesFrame translates one Responses API frame into events.
// Unrecognized event types decode to nothing; only malformed JSON is an
// error.
func DecodeResponsesFrame(data []byte) ([]stream.Event, error) {
	var frame responsesFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, err
	}
	var events []stream.Event
	switch frame.Type {
	case "response.created":
		events = append(events, stream.Event{Type: stream.ResponseCreated})
	case "response.output_item.added":
		if frame.Item != nil && frame.Item.Type == "message" {
			events = append(events, stream.Event{Type: stream.ItemAdded, ItemID: frame.Item.ID})
		}
	case "response.output_text.delta":
		events = append(events, stream.Event{Type: stream.TextDelta, Delta: frame.Delta, ItemID: frame.ItemID})
	case "response.tool_use.started":
		if frame.toolIsWebSearch() {
			events = append(events, stream.Event{Type: stream.ToolStarted})
		}
	case "response.tool_use.output":
		if frame.toolIsWebSearch() {
			events = append(events, stream.Event{Type: stream.ToolFinished})
			if frame.ToolUse.Output != nil {
				events = append(events, stream.Event{Type: stream.SearchResults, Results: frame.ToolUse.Output})
			}
		}
	case "response.tool_use.failed":
		if frame.toolIsWebSearch() {
			events = append(events, stream.Event{Type: stream.ToolFailed})
		}
	case "response.web_search_results":
		if frame.Data != nil {
			events = append(events, stream.Event{Type: stream.SearchResults, Results: frame.Data})
		}
	case "response.completed":
		ev := stream.Event{Type: stream.Completed}
		if frame.Response != nil {
			ev.ResponseID = frame.Response.ID
		}
		events = append(events, ev)
	case "response.failed":
		ev := stream.Event{Type: stream.Failed}
		if frame.Error != nil {
			ev.Reason = frame.Error.Message
		}
		events = append(events, ev)
	case "response.incomplete":
		events = append(events, stream.Event{Type: stream.Incomplete, Reason: frame.Reason})
	}
	return events, nil
}

func (f *responsesFrame) toolIsWebSearch() bool {
	return f.ToolUse != nil && (f.ToolUse.Type == "web_search_preview" || f.ToolUse.Type == "web_search")
}

// StreamResponses opens a Responses API stream.
func (c *Client) StreamResponses(ctx context.Context, body []byte) (io.ReadCloser, error) {
	return c.postStream(ctx, "/responses", "Responses API", body)
}
