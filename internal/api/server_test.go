package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/omnichat-dev/omnichat/internal/chat"
	"github.com/omnichat-dev/omnichat/internal/config"
	"github.com/omnichat-dev/omnichat/internal/history"
	"github.com/omnichat-dev/omnichat/internal/store"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	dir := t.TempDir()
	chatStore, err := store.Open(filepath.Join(dir, "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = chatStore.Close() })

	cfg := &config.Config{
		Port:         0,
		DefaultModel: "gpt-4o",
		Routing: config.Routing{
			ResponsesModels: []string{"gpt-4o"},
			ReasoningModel:  "o4-mini",
			RestrictedModel: "o3-mini-high",
			FallbackModel:   "gpt-4o",
			WebSearchModel:  "gpt-4o",
			ImageModel:      "dall-e-3",
			ResearchModel:   "gemini-2.5-flash",
		},
		Speech: config.Speech{Voice: "alloy", Format: "mp3"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, chat.NewState(), chatStore, filepath.Join(dir, "config.yaml"))
}

func doJSON(s *Server, method, path string, payload any, header http.Header) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestChatHistoryAndNew(t *testing.T) {
	s := newTestServer(t, nil)
	s.state.History.Append(history.Turn{Role: history.RoleUser, Content: "hi"})

	w := doJSON(s, http.MethodGet, "/v0/chat/history", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"hi"`)

	w = doJSON(s, http.MethodPost, "/v0/chat/new", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.state.History.Len())
}

func TestChatSendStreamsNotices(t *testing.T) {
	// No provider keys configured: the send must still answer with an SSE
	// effect stream carrying the error notice and the DONE sentinel.
	s := newTestServer(t, nil)

	w := doJSON(s, http.MethodPost, "/v0/chat/send", map[string]any{"message": "hello", "model": "gpt-4o"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `"type":"notice"`)
	assert.Contains(t, body, "not configured")
	assert.Contains(t, body, "data: [DONE]\n\n")

	// The user turn is appended even when routing fails.
	assert.Equal(t, 1, s.state.History.Len())
}

func TestRegenerateWithoutHistory(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(s, http.MethodPost, "/v0/chat/regenerate", map[string]any{"model": "gpt-4o"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAndLoadChatEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.state.History.Append(history.Turn{Role: history.RoleUser, Content: "remember me"})

	w := doJSON(s, http.MethodPost, "/v0/chats", map[string]any{"name": "memo"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var saved struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ID)

	s.state.NewChat()
	require.Zero(t, s.state.History.Len())

	w = doJSON(s, http.MethodPost, "/v0/chats/"+saved.ID+"/load", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.state.History.Len())

	w = doJSON(s, http.MethodDelete, "/v0/chats/"+saved.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(s, http.MethodPost, "/v0/chats/"+saved.ID+"/load", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssistantLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(s, http.MethodPost, "/v0/assistants", map[string]any{
		"name":         "Pirate",
		"instructions": "Answer like a pirate.",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))

	w = doJSON(s, http.MethodPost, "/v0/assistants/"+cfg.ID+"/activate", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, s.state.ActiveAssistant())
	assert.Equal(t, "Pirate", s.state.ActiveAssistant().Name)

	// Deleting the active assistant deactivates it.
	w = doJSON(s, http.MethodDelete, "/v0/assistants/"+cfg.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, s.state.ActiveAssistant())
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.APIKeys = []string{"k1"}
	})

	w := doJSON(s, http.MethodGet, "/v0/chat/history", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	header := http.Header{"Authorization": []string{"Bearer k1"}}
	w = doJSON(s, http.MethodGet, "/v0/chat/history", nil, header)
	assert.Equal(t, http.StatusOK, w.Code)

	header = http.Header{"Authorization": []string{"Bearer wrong"}}
	w = doJSON(s, http.MethodGet, "/v0/chat/history", nil, header)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestManagementGuard(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(s, http.MethodGet, "/v0/management/config", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.DefaultCost)
	require.NoError(t, err)
	s = newTestServer(t, func(cfg *config.Config) {
		cfg.ManagementSecret = string(hash)
	})

	w = doJSON(s, http.MethodGet, "/v0/management/config", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	header := http.Header{"X-Management-Key": []string{"open-sesame"}}
	w = doJSON(s, http.MethodGet, "/v0/management/config", nil, header)
	require.Equal(t, http.StatusOK, w.Code)
	// Credentials never leave as values, only as presence flags.
	assert.NotContains(t, w.Body.String(), "api-key")

	header = http.Header{"X-Management-Key": []string{"wrong"}}
	w = doJSON(s, http.MethodGet, "/v0/management/config", nil, header)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSpeechRejectsEmptyText(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(s, http.MethodPost, "/v0/speech", map[string]any{"text": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
