package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// managementMiddleware enforces access control for management endpoints.
// The management secret in configuration is a bcrypt hash; when it is unset
// the endpoints are disabled entirely.
func (s *Server) managementMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := s.currentConfig().ManagementSecret
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "management endpoints disabled"})
			return
		}

		// Accept either Authorization: Bearer <key> or X-Management-Key.
		var provided string
		if ah := c.GetHeader("Authorization"); ah != "" {
			parts := strings.SplitN(ah, " ", 2)
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
				provided = parts[1]
			} else {
				provided = ah
			}
		}
		if provided == "" {
			provided = c.GetHeader("X-Management-Key")
		}
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing management key"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(secret), []byte(provided)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
			return
		}

		c.Next()
	}
}

// getConfig returns the current configuration with credentials reduced to
// presence flags.
func (s *Server) getConfig(c *gin.Context) {
	cfg := s.currentConfig()
	c.JSON(http.StatusOK, gin.H{
		"port":          cfg.Port,
		"debug":         cfg.Debug,
		"request-log":   cfg.RequestLog,
		"default-model": cfg.DefaultModel,
		"open-browser":  cfg.OpenBrowser,
		"routing":       cfg.Routing,
		"speech":        cfg.Speech,
		"keys": gin.H{
			"openai": cfg.OpenAIAPIKey != "",
			"gemini": cfg.GeminiAPIKey != "",
			"xai":    cfg.XAIAPIKey != "",
		},
	})
}

// updateConfig applies the mutable settings and persists the configuration
// file; the file watcher then hot-reloads the rest of the process.
func (s *Server) updateConfig(c *gin.Context) {
	var req struct {
		Debug        *bool   `json:"debug"`
		RequestLog   *bool   `json:"request-log"`
		DefaultModel *string `json:"default-model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.mu.Lock()
	if req.Debug != nil {
		s.cfg.Debug = *req.Debug
	}
	if req.RequestLog != nil {
		s.cfg.RequestLog = *req.RequestLog
	}
	if req.DefaultModel != nil && *req.DefaultModel != "" {
		s.cfg.DefaultModel = *req.DefaultModel
	}
	cfg := s.cfg
	s.mu.Unlock()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err = os.WriteFile(s.configFilePath, data, 0o644); err != nil {
		log.Errorf("failed to persist config: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
