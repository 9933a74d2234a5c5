package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

// Repeated read-alouds of the same message are common; synthesized audio is
// memoized for a while instead of re-billing the TTS endpoint.
var speechCache = gocache.New(30*time.Minute, 10*time.Minute)

// SpeechRequest is one synthesis call. Format defaults to mp3, voice to
// alloy when empty.
type SpeechRequest struct {
	Text         string
	Voice        string
	Format       string
	Instructions string
}

func (r *SpeechRequest) cacheKey() string {
	sum := sha256.Sum256([]byte(r.Voice + "\x00" + r.Format + "\x00" + r.Instructions + "\x00" + r.Text))
	return hex.EncodeToString(sum[:])
}

// Synthesize calls the TTS endpoint and returns the raw audio bytes.
// Empty input is rejected locally before any network call.
func (c *Client) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("speech synthesis requires non-empty text")
	}
	if req.Voice == "" {
		req.Voice = "alloy"
	}
	if req.Format == "" {
		req.Format = "mp3"
	}
	if cached, ok := speechCache.Get(req.cacheKey()); ok {
		log.Debug("openai: speech cache hit")
		return cached.([]byte), nil
	}

	payload := struct {
		Model          string `json:"model"`
		Input          string `json:"input"`
		Voice          string `json:"voice"`
		ResponseFormat string `json:"response_format"`
		Instructions   string `json:"instructions,omitempty"`
	}{
		Model:          "gpt-4o-mini-tts",
		Input:          req.Text,
		Voice:          req.Voice,
		ResponseFormat: req.Format,
		Instructions:   req.Instructions,
	}
	body, _ := json.Marshal(payload)
	audio, err := c.postJSON(ctx, "/audio/speech", "TTS", body)
	if err != nil {
		return nil, err
	}
	log.Debugf("openai: speech synthesis succeeded, %d bytes (%s)", len(audio), req.Format)
	speechCache.Set(req.cacheKey(), audio, gocache.DefaultExpiration)
	return audio, nil
}
