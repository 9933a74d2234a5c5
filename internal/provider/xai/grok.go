// Package xai speaks the X.AI Grok endpoint. Grok uses the Chat
// Completions wire shape with two differences that matter here: frames
// arrive one per line instead of blank-line separated, and reasoning
// models interleave reasoning_content deltas with regular content.
package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"

	"github.com/omnichat-dev/omnichat/internal/provider"
	"github.com/omnichat-dev/omnichat/internal/provider/openai"
	"github.com/omnichat-dev/omnichat/internal/stream"
)

const defaultBaseURL = "https://api.x.ai/v1"

// ReasoningModel is the Grok variant that wants an explicit effort setting.
const ReasoningModel = "grok-3-mini-beta"

// Client is a handle over the X.AI endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an X.AI client; nil httpClient falls back to a default
// client with no timeout.
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

// NewChatRequest builds a streaming Grok request. The reasoning model gets
// reasoning_effort high, mirroring its web client.
func NewChatRequest(model string, messages []openai.Message) []byte {
	payload := struct {
		Model    string           `json:"model"`
		Messages []openai.Message `json:"messages"`
		Stream   bool             `json:"stream"`
	}{Model: model, Messages: messages, Stream: true}
	body, _ := json.Marshal(payload)
	if model == ReasoningModel {
		body, _ = sjson.SetBytes(body, "reasoning_effort", "high")
	}
	return body
}

// DecodeFrame translates one Grok frame into events. The shape matches
// Chat Completions, including reasoning_content, so the openai decoder is
// reused.
func DecodeFrame(data []byte) ([]stream.Event, error) {
	return openai.DecodeChatFrame(data)
}

// StreamChatCompletions opens the Grok stream.
func (c *Client) StreamChatCompletions(ctx context.Context, body []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")
	log.Debug("xai: POST /chat/completions")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, provider.ClassifyError("Grok", resp.StatusCode, b)
	}
	return resp.Body, nil
}
