package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omnichat-dev/omnichat/internal/assistant"
	"github.com/omnichat-dev/omnichat/internal/history"
)

// sendRequest is the browser's send payload. Attached file contents are
// extracted client-side; only the metadata rides along with the turn.
type sendRequest struct {
	Message       string             `json:"message"`
	Model         string             `json:"model"`
	WebSearch     bool               `json:"webSearch"`
	ImageData     string             `json:"imageData"`
	AttachedFiles []history.FileMeta `json:"attachedFiles"`
}

// chatSend appends the user's turn and streams UI effects back over SSE
// while the router drives the upstream request.
func (s *Server) chatSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.state.History.Append(history.Turn{
		Role:              history.RoleUser,
		Content:           req.Message,
		ImageData:         req.ImageData,
		AttachedFilesMeta: req.AttachedFiles,
	})

	ui := newSSESurface(c)
	s.currentRouter().Route(c.Request.Context(), req.Model, req.WebSearch, ui)
	ui.done()
}

// chatRegenerate drops the trailing assistant turn and re-routes the last
// user turn.
func (s *Server) chatRegenerate(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.state.History.RemoveLastAssistant()
	if _, ok := s.state.History.LastUserTurn(); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to regenerate"})
		return
	}

	ui := newSSESurface(c)
	s.currentRouter().Route(c.Request.Context(), req.Model, req.WebSearch, ui)
	ui.done()
}

func (s *Server) chatHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"turns": s.state.History.Snapshot()})
}

func (s *Server) chatNew(c *gin.Context) {
	s.state.NewChat()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// chatModes toggles the web-search / image-generation / deep-research
// request modes.
func (s *Server) chatModes(c *gin.Context) {
	var req struct {
		WebSearch    bool `json:"webSearch"`
		ImageGen     bool `json:"imageGen"`
		DeepResearch bool `json:"deepResearch"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.state.SetModes(req.WebSearch, req.ImageGen, req.DeepResearch)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listChats(c *gin.Context) {
	chats, err := s.store.ListChats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (s *Server) saveChat(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a chat name is required"})
		return
	}
	saved, err := s.store.SaveChat(req.Name, s.state.History.Snapshot())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) loadChat(c *gin.Context) {
	saved, err := s.store.LoadChat(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.state.LoadChat(saved.Turns)
	c.JSON(http.StatusOK, gin.H{"turns": saved.Turns, "name": saved.Name})
}

func (s *Server) deleteChat(c *gin.Context) {
	if err := s.store.DeleteChat(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listAssistants(c *gin.Context) {
	configs, err := s.store.ListAssistants()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistants": configs})
}

func (s *Server) saveAssistant(c *gin.Context) {
	var cfg assistant.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(cfg.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "an assistant name is required"})
		return
	}
	if err := s.store.SaveAssistant(&cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, &cfg)
}

func (s *Server) deleteAssistant(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.DeleteAssistant(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Deleting the active assistant deactivates it.
	if active := s.state.ActiveAssistant(); active != nil && active.ID == id {
		s.state.SetActiveAssistant(nil)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) activateAssistant(c *gin.Context) {
	cfg, err := s.store.LoadAssistant(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.state.SetActiveAssistant(cfg)
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) deactivateAssistant(c *gin.Context) {
	s.state.SetActiveAssistant(nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
