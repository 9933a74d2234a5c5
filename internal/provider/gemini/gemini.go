// Package gemini speaks the Google Generative Language API: streaming chat
// over streamGenerateContent (alt=sse) and the non-streaming deep-research
// report path. History roles are mapped on the way in (assistant -> model);
// the rest of the system only ever sees the user/assistant roles.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/omnichat-dev/omnichat/internal/history"
	"github.com/omnichat-dev/omnichat/internal/provider"
	"github.com/omnichat-dev/omnichat/internal/stream"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// inlineImagePattern recognizes the embedded image formats accepted as
// inline_data parts.
var inlineImagePattern = regexp.MustCompile(`^data:image/(jpeg|png|gif);base64,(.+)$`)

// Client is a handle over the Generative Language endpoints. Gemini
// authenticates with a key query parameter rather than a bearer header.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Gemini client; a nil httpClient falls back to a
// default client with no timeout.
func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 0}
	}
	return &Client{apiKey: apiKey, baseURL: defaultBaseURL, httpClient: httpClient}
}

// WithBaseURL overrides the API base URL, used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// Part is one element of a content entry: text or inline image data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData is a base64 image payload with its MIME type.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Content is one conversation entry in Gemini's role/parts shape.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// SystemInstruction carries the system prompt outside the contents list.
type SystemInstruction struct {
	Parts []Part `json:"parts"`
}

// GenerationConfig tunes sampling.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

// DefaultGenerationConfig mirrors the settings used for chat.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.7, MaxOutputTokens: 8192, TopP: 0.95, TopK: 64}
}

// BuildContents maps conversation history into Gemini content entries.
// Assistant turns become the vendor's "model" role; turns that end up with
// no parts (for example an image in an unsupported format) are skipped.
func BuildContents(turns []history.Turn) []Content {
	contents := make([]Content, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == history.RoleAssistant {
			role = "model"
		}
		entry := Content{Role: role}
		if turn.Content != "" {
			entry.Parts = append(entry.Parts, Part{Text: turn.Content})
		}
		if turn.ImageData != "" {
			if m := inlineImagePattern.FindStringSubmatch(turn.ImageData); m != nil {
				entry.Parts = append(entry.Parts, Part{InlineData: &InlineData{
					MimeType: "image/" + m[1],
					Data:     m[2],
				}})
			} else {
				log.Warn("gemini: image data not in a supported format, skipping image part")
			}
		}
		if len(entry.Parts) > 0 {
			contents = append(contents, entry)
		}
	}
	return contents
}

// PrependKnowledge injects knowledge text into the final user entry's text
// part, adding a text part when the entry is image-only.
func PrependKnowledge(contents []Content, knowledge string) {
	if knowledge == "" || len(contents) == 0 {
		return
	}
	last := &contents[len(contents)-1]
	if last.Role != "user" {
		log.Warn("gemini: no trailing user entry to carry knowledge text")
		return
	}
	for i := range last.Parts {
		if last.Parts[i].InlineData == nil {
			last.Parts[i].Text = knowledge + "\n\n" + last.Parts[i].Text
			return
		}
	}
	last.Parts = append([]Part{{Text: knowledge}}, last.Parts...)
}

// NewSystemInstruction wraps a system prompt, nil when the prompt is blank.
func NewSystemInstruction(prompt string) *SystemInstruction {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}
	return &SystemInstruction{Parts: []Part{{Text: prompt}}}
}

// generateRequest is the streamGenerateContent body.
type generateRequest struct {
	Contents          []Content          `json:"contents"`
	SystemInstruction *SystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  GenerationConfig   `json:"generationConfig"`
}

// StreamGenerateContent opens the SSE stream for the given model.
func (c *Client) StreamGenerateContent(ctx context.Context, model string, contents []Content, system *SystemInstruction, genConfig GenerationConfig) (io.ReadCloser, error) {
	body, _ := json.Marshal(generateRequest{Contents: contents, SystemInstruction: system, GenerationConfig: genConfig})
	endpoint := c.baseURL + "/" + model + ":streamGenerateContent?alt=sse&key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	log.Debugf("gemini: POST %s:streamGenerateContent", model)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, provider.ClassifyError("Gemini", resp.StatusCode, b)
	}
	return resp.Body, nil
}

// generateChunk is the typed frame schema of a Gemini stream event.
type generateChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason  string `json:"finishReason"`
		SafetyRatings []struct {
			Category    string `json:"category"`
			Probability string `json:"probability"`
		} `json:"safetyRatings"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// DecodeFrame translates one Gemini stream frame into events. Gemini frames
// without a text part still count as a present-but-empty delta; the
// original wire protocol keeps emitting candidate frames while the message
// container should already exist.
func DecodeFrame(data []byte) ([]stream.Event, error) {
	var chunk generateChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, err
	}
	var events []stream.Event
	for i := range chunk.Candidates {
		cand := &chunk.Candidates[i]
		text := ""
		if len(cand.Content.Parts) > 0 && cand.Content.Parts[0].Text != nil {
			text = *cand.Content.Parts[0].Text
		}
		events = append(events, stream.Event{Type: stream.TextDelta, Delta: stream.StringPtr(text)})

		var blocked []string
		for _, rating := range cand.SafetyRatings {
			if rating.Probability == "BLOCK" {
				blocked = append(blocked, rating.Category)
			}
		}
		if len(blocked) > 0 {
			events = append(events, stream.Event{
				Type:   stream.Blocked,
				Reason: "Response blocked by Gemini's safety filters: " + strings.Join(blocked, ", "),
			})
			continue
		}
		if cand.FinishReason != "" && cand.FinishReason != "FINISH_REASON_UNSPECIFIED" {
			events = append(events, stream.Event{Type: stream.FinishReason, Reason: cand.FinishReason})
		}
	}
	if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
		events = append(events, stream.Event{
			Type:   stream.Blocked,
			Reason: "Prompt blocked by Gemini's content filter: " + chunk.PromptFeedback.BlockReason,
		})
	}
	return events, nil
}
