package openai

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// GeneratedImage is the result of one image-generation call.
type GeneratedImage struct {
	URL string
	// RevisedPrompt is the model's rewrite of the prompt, when provided.
	RevisedPrompt string
}

// GenerateImage performs a single non-streaming DALL-E generation. Any
// failure returns an error for the router to surface; no partial results.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	payload := struct {
		Model          string `json:"model"`
		Prompt         string `json:"prompt"`
		N              int    `json:"n"`
		Size           string `json:"size"`
		Quality        string `json:"quality"`
		ResponseFormat string `json:"response_format"`
	}{
		Model:          "dall-e-3",
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		Quality:        "standard",
		ResponseFormat: "url",
	}
	body, _ := json.Marshal(payload)
	respBody, err := c.postJSON(ctx, "/images/generations", "DALL-E", body)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Data []struct {
			URL           string `json:"url"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err = json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected image generation response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return nil, fmt.Errorf("image generation response missing image data")
	}
	log.Debugf("openai: image generated: %s", parsed.Data[0].URL)
	return &GeneratedImage{URL: parsed.Data[0].URL, RevisedPrompt: parsed.Data[0].RevisedPrompt}, nil
}
