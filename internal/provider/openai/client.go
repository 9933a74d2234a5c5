// Package openai speaks the OpenAI HTTP APIs: Chat Completions, the
// Responses API, DALL-E image generation and speech synthesis. The two
// streaming endpoints get typed frame decoders that feed the uniform event
// model in internal/stream.
package openai

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/omnichat-dev/omnichat/internal/provider"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client is a thin handle over the OpenAI endpoints. The HTTP client is
// injected so proxy configuration stays with the caller.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the given key. httpClient may carry a
// proxied transport; nil falls back to a default client with no timeout,
// which streaming requires.
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

// postStream issues a streaming POST and hands back the body for the
// consume loop. Non-2xx responses are drained and classified.
func (c *Client) postStream(ctx context.Context, path, label string, body []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	log.Debugf("openai: POST %s", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, provider.ClassifyError(label, resp.StatusCode, b)
	}
	return resp.Body, nil
}

// postJSON issues a non-streaming POST and returns the response bytes.
func (c *Client) postJSON(ctx context.Context, path, label string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, provider.ClassifyError(label, resp.StatusCode, b)
	}
	return b, nil
}
