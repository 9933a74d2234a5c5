package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omnichat-dev/omnichat/internal/provider"
)

// generateImage runs a standalone image generation, streaming the result
// (or a typed error notice) back as UI effects.
func (s *Server) generateImage(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ui := newSSESurface(c)
	s.currentRouter().GenerateImage(c.Request.Context(), req.Prompt, ui)
	ui.done()
}

// deepResearch runs a standalone deep-research request over SSE; these can
// take many minutes, so progress rides the effect stream.
func (s *Server) deepResearch(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ui := newSSESurface(c)
	s.currentRouter().Research(c.Request.Context(), req.Prompt, ui)
	ui.done()
}

var audioContentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"opus": "audio/ogg",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"pcm":  "audio/pcm",
}

// synthesizeSpeech returns synthesized audio bytes for the given text.
func (s *Server) synthesizeSpeech(c *gin.Context) {
	var req struct {
		Text         string `json:"text"`
		Voice        string `json:"voice"`
		Format       string `json:"format"`
		Instructions string `json:"instructions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	audio, err := s.currentRouter().Synthesize(c.Request.Context(), req.Text, req.Voice, req.Format, req.Instructions)
	if err != nil {
		status := http.StatusBadGateway
		var statusErr *provider.StatusError
		if errors.As(err, &statusErr) {
			status = statusErr.StatusCode()
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	format := req.Format
	if format == "" {
		format = s.currentConfig().Speech.Format
	}
	contentType := audioContentTypes[format]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, audio)
}
