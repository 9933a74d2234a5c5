// Package api provides the HTTP server for the OmniChat browser client.
// It exposes the chat endpoints that stream UI effects to the browser over
// SSE, chat and assistant persistence, media endpoints (image generation,
// speech synthesis, deep research) and bcrypt-guarded management endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/omnichat-dev/omnichat/internal/chat"
	"github.com/omnichat-dev/omnichat/internal/config"
	"github.com/omnichat-dev/omnichat/internal/logging"
	"github.com/omnichat-dev/omnichat/internal/store"
	"github.com/omnichat-dev/omnichat/internal/util"
)

// Server is the OmniChat HTTP server.
type Server struct {
	// engine is the Gin web framework engine instance.
	engine *gin.Engine

	// server is the underlying HTTP server.
	server *http.Server

	// configFilePath is the absolute path to the YAML config file for persistence.
	configFilePath string

	mu     sync.RWMutex
	cfg    *config.Config
	router *chat.Router

	state *chat.State
	store *store.Store
}

// NewServer creates and initializes a new chat server instance. It sets up
// the Gin engine, middleware, routes and the request router.
func NewServer(cfg *config.Config, st *chat.State, chatStore *store.Store, configFilePath string) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(corsMiddleware())

	s := &Server{
		engine:         engine,
		configFilePath: configFilePath,
		cfg:            cfg,
		router:         chat.NewRouter(cfg, st, buildHTTPClient(cfg)),
		state:          st,
		store:          chatStore,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}
	return s
}

// buildHTTPClient assembles the shared outbound client: proxy settings from
// configuration and, when request logging is on, a transport that captures
// every upstream exchange.
func buildHTTPClient(cfg *config.Config) *http.Client {
	client := util.SetProxy(cfg, &http.Client{})
	if cfg.RequestLog {
		client.Transport = logging.NewRequestLogTransport(client.Transport, "logs")
	}
	return client
}

func (s *Server) setupRoutes() {
	v0 := s.engine.Group("/v0")
	v0.Use(s.authMiddleware())
	{
		v0.POST("/chat/send", s.chatSend)
		v0.POST("/chat/regenerate", s.chatRegenerate)
		v0.GET("/chat/history", s.chatHistory)
		v0.POST("/chat/new", s.chatNew)
		v0.POST("/chat/modes", s.chatModes)

		v0.GET("/chats", s.listChats)
		v0.POST("/chats", s.saveChat)
		v0.POST("/chats/:id/load", s.loadChat)
		v0.DELETE("/chats/:id", s.deleteChat)

		v0.GET("/assistants", s.listAssistants)
		v0.POST("/assistants", s.saveAssistant)
		v0.DELETE("/assistants/:id", s.deleteAssistant)
		v0.POST("/assistants/:id/activate", s.activateAssistant)
		v0.POST("/assistants/deactivate", s.deactivateAssistant)

		v0.POST("/images", s.generateImage)
		v0.POST("/speech", s.synthesizeSpeech)
		v0.POST("/research", s.deepResearch)
	}

	mgmt := s.engine.Group("/v0/management")
	mgmt.Use(s.managementMiddleware())
	{
		mgmt.GET("/config", s.getConfig)
		mgmt.PUT("/config", s.updateConfig)
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	log.Debugf("Starting chat server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %v", err)
	}
	return nil
}

// Stop gracefully shuts down the server without interrupting any active
// connections.
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("Stopping chat server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	log.Debug("chat server stopped")
	return nil
}

// ApplyConfig swaps in a hot-reloaded configuration and rebuilds the
// request router with the fresh keys and proxy settings.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.router = chat.NewRouter(cfg, s.state, buildHTTPClient(cfg))
}

func (s *Server) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Server) currentRouter() *chat.Router {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.router
}

// corsMiddleware returns a Gin middleware handler that adds CORS headers
// to every response, allowing cross-origin requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authMiddleware enforces the optional client API keys, with an optional
// bypass for localhost.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := s.currentConfig()

		if cfg.AllowLocalhostUnauthenticated && strings.HasPrefix(c.Request.RemoteAddr, "127.0.0.1:") {
			c.Next()
			return
		}

		if len(cfg.APIKeys) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		apiKeyQuery, _ := c.GetQuery("key")
		if authHeader == "" && apiKeyQuery == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
			return
		}

		parts := strings.Split(authHeader, " ")
		var apiKey string
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			apiKey = parts[1]
		} else {
			apiKey = authHeader
		}

		var foundKey string
		for i := range cfg.APIKeys {
			if cfg.APIKeys[i] == apiKey || cfg.APIKeys[i] == apiKeyQuery {
				foundKey = cfg.APIKeys[i]
				break
			}
		}
		if foundKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Set("apiKey", foundKey)
		c.Next()
	}
}
