// Package config provides configuration management for the OmniChat server.
// It handles loading and parsing YAML configuration files, applies environment
// variable fallbacks for provider credentials, and provides structured access
// to application settings including server port, provider API keys, routing
// rules, speech synthesis defaults, and debug settings.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Port is the network port on which the chat server will listen.
	Port int `yaml:"port"`

	// Debug enables or disables debug-level logging and other debug features.
	Debug bool `yaml:"debug"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url"`

	// RequestLog enables or disables detailed request logging functionality.
	RequestLog bool `yaml:"request-log"`

	// LoggingToFile routes process logs to rotating files under logs/
	// instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// APIKeys is a list of keys for authenticating clients to this server.
	APIKeys []string `yaml:"api-keys"`

	// AllowLocalhostUnauthenticated allows unauthenticated requests from localhost.
	AllowLocalhostUnauthenticated bool `yaml:"allow-localhost-unauthenticated"`

	// OpenAIAPIKey is the API key for the OpenAI platform. When empty, the
	// OPENAI_API_KEY environment variable is used instead.
	OpenAIAPIKey string `yaml:"openai-api-key"`

	// GeminiAPIKey is the API key for the Gemini generative language API.
	// When empty, the GEMINI_API_KEY environment variable is used instead.
	GeminiAPIKey string `yaml:"gemini-api-key"`

	// XAIAPIKey is the API key for the xAI platform. When empty, the
	// XAI_API_KEY environment variable is used instead.
	XAIAPIKey string `yaml:"xai-api-key"`

	// DefaultModel is the model selected when a request names none.
	DefaultModel string `yaml:"default-model"`

	// ChatDBPath is the path of the bbolt database file holding saved chats
	// and assistant configurations.
	ChatDBPath string `yaml:"chat-db-path"`

	// ManagementSecret is a bcrypt hash guarding the configuration
	// management endpoints. When empty those endpoints are disabled.
	ManagementSecret string `yaml:"management-secret"`

	// OpenBrowser controls whether the server opens the chat UI in the
	// local browser after startup.
	OpenBrowser bool `yaml:"open-browser"`

	// Routing overrides the built-in model routing rules.
	Routing Routing `yaml:"routing"`

	// Speech holds text-to-speech synthesis defaults.
	Speech Speech `yaml:"speech"`
}

// Routing defines which models take which request path and which models
// carry restricted capabilities. Zero values fall back to the defaults
// applied by LoadConfig.
type Routing struct {
	// ResponsesModels are the models dispatched through the OpenAI
	// Responses API with server-side conversation state.
	ResponsesModels []string `yaml:"responses-models"`

	// ReasoningModel is the model dispatched through the Responses API
	// with high reasoning effort.
	ReasoningModel string `yaml:"reasoning-model"`

	// RestrictedModel is the chat-completions reasoning model that cannot
	// accept images, web search, knowledge files or system prompts.
	RestrictedModel string `yaml:"restricted-model"`

	// FallbackModel replaces the restricted model when a request carries a
	// capability the restricted model does not support.
	FallbackModel string `yaml:"fallback-model"`

	// WebSearchModel is the only model allowed to run web search.
	WebSearchModel string `yaml:"web-search-model"`

	// ImageModel is the model used for image generation requests.
	ImageModel string `yaml:"image-model"`

	// ResearchModel is the model used for deep research requests.
	ResearchModel string `yaml:"research-model"`
}

// Speech holds defaults for the text-to-speech endpoint.
type Speech struct {
	// Voice is the default synthesis voice.
	Voice string `yaml:"voice"`

	// Format is the default audio output format.
	Format string `yaml:"format"`

	// Instructions optionally steer the speaking style.
	Instructions string `yaml:"instructions"`
}

// LoadConfig reads a YAML configuration file from the given path, unmarshals
// it into a Config struct, applies environment variable fallbacks for
// provider API keys, fills routing defaults, and returns it. A .env file in
// the working directory is loaded first when present.
func LoadConfig(configFile string) (*Config, error) {
	// A missing .env file is not an error; real environments set
	// variables directly.
	_ = godotenv.Load()

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.XAIAPIKey == "" {
		c.XAIAPIKey = os.Getenv("XAI_API_KEY")
	}
	if c.Port == 0 {
		c.Port = 8317
	}
	if c.DefaultModel == "" {
		c.DefaultModel = "gpt-4o"
	}
	if c.ChatDBPath == "" {
		c.ChatDBPath = "chats.db"
	}
	if len(c.Routing.ResponsesModels) == 0 {
		c.Routing.ResponsesModels = []string{"gpt-4o", "gpt-4.1", "gpt-4.5-preview"}
	}
	if c.Routing.ReasoningModel == "" {
		c.Routing.ReasoningModel = "o4-mini"
	}
	if c.Routing.RestrictedModel == "" {
		c.Routing.RestrictedModel = "o3-mini-high"
	}
	if c.Routing.FallbackModel == "" {
		c.Routing.FallbackModel = "gpt-4o"
	}
	if c.Routing.WebSearchModel == "" {
		c.Routing.WebSearchModel = "gpt-4o"
	}
	if c.Routing.ImageModel == "" {
		c.Routing.ImageModel = "dall-e-3"
	}
	if c.Routing.ResearchModel == "" {
		c.Routing.ResearchModel = "gemini-2.5-flash"
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = "alloy"
	}
	if c.Speech.Format == "" {
		c.Speech.Format = "mp3"
	}
}
