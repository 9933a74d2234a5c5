package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/omnichat-dev/omnichat/internal/stream"
)

// effectFrame is one UI effect pushed to the browser as an SSE data frame.
type effectFrame struct {
	Type     string                  `json:"type"`
	ID       string                  `json:"id,omitempty"`
	Label    string                  `json:"label,omitempty"`
	Text     string                  `json:"text,omitempty"`
	HTML     string                  `json:"html,omitempty"`
	Level    string                  `json:"level,omitempty"`
	Message  string                  `json:"message,omitempty"`
	Duration int64                   `json:"durationMs,omitempty"`
	ImageURL string                  `json:"imageUrl,omitempty"`
	Caption  string                  `json:"caption,omitempty"`
	Results  *stream.SearchResultSet `json:"results,omitempty"`
}

// sseSurface implements stream.Surface by pushing effect frames to the
// browser over the response's SSE channel. Writes are serialized; the
// stream read loop and notice emitters may call concurrently.
type sseSurface struct {
	mu      sync.Mutex
	writer  gin.ResponseWriter
	flusher http.Flusher
}

func newSSESurface(c *gin.Context) *sseSurface {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	flusher, _ := c.Writer.(http.Flusher)
	return &sseSurface{writer: c.Writer, flusher: flusher}
}

func (s *sseSurface) emit(frame effectFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Errorf("api: cannot marshal effect frame: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.writer, "data: %s\n\n", data)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// done terminates the effect stream with the [DONE] sentinel.
func (s *sseSurface) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprint(s.writer, "data: [DONE]\n\n")
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *sseSurface) ShowThinking(label string) {
	s.emit(effectFrame{Type: "showThinking", Label: label})
}

func (s *sseSurface) HideThinking() {
	s.emit(effectFrame{Type: "hideThinking"})
}

func (s *sseSurface) CreateMessage(id string) {
	s.emit(effectFrame{Type: "createMessage", ID: id})
}

func (s *sseSurface) AppendChunk(id, escaped string) {
	s.emit(effectFrame{Type: "appendChunk", ID: id, Text: escaped})
}

func (s *sseSurface) AppendSearchResults(id string, results *stream.SearchResultSet) {
	s.emit(effectFrame{Type: "searchResults", ID: id, Results: results})
}

func (s *sseSurface) FinalizeMessage(id, html string) {
	s.emit(effectFrame{Type: "finalizeMessage", ID: id, HTML: html})
}

func (s *sseSurface) SetReasoning(id, html string) {
	s.emit(effectFrame{Type: "setReasoning", ID: id, HTML: html})
}

func (s *sseSurface) SetupActions(id, rawText string) {
	s.emit(effectFrame{Type: "setupActions", ID: id, Text: rawText})
}

func (s *sseSurface) Notify(level stream.NoticeLevel, message string, duration time.Duration) {
	s.emit(effectFrame{Type: "notice", Level: string(level), Message: message, Duration: duration.Milliseconds()})
}

func (s *sseSurface) ShowImage(id, imageURL, caption string) {
	s.emit(effectFrame{Type: "showImage", ID: id, ImageURL: imageURL, Caption: caption})
}
