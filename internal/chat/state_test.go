package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omnichat-dev/omnichat/internal/assistant"
	"github.com/omnichat-dev/omnichat/internal/history"
)

func TestContinuationScopedToProtocol(t *testing.T) {
	st := NewState()
	st.StoreContinuation(ProtocolResponses, "resp_1")
	assert.Equal(t, "resp_1", st.Continuation(ProtocolResponses))
	assert.Empty(t, st.Continuation(ProtocolGemini))

	// Switching protocols drops the token even if the new request yields none.
	st.StoreContinuation(ProtocolChat, "")
	assert.Empty(t, st.Continuation(ProtocolResponses))
	assert.Empty(t, st.Continuation(ProtocolChat))
}

func TestContinuationSurvivesSameProtocol(t *testing.T) {
	st := NewState()
	st.StoreContinuation(ProtocolResponses, "resp_1")
	st.StoreContinuation(ProtocolResponses, "")
	assert.Equal(t, "resp_1", st.Continuation(ProtocolResponses))
	st.StoreContinuation(ProtocolResponses, "resp_2")
	assert.Equal(t, "resp_2", st.Continuation(ProtocolResponses))
}

func TestConsumeImageIsOneShot(t *testing.T) {
	st := NewState()
	assert.Empty(t, st.ConsumeImage())
	st.RememberImage("https://img.example/1.png")
	assert.Equal(t, "https://img.example/1.png", st.ConsumeImage())
	assert.Empty(t, st.ConsumeImage())
}

func TestAssistantSwitchResetsContinuation(t *testing.T) {
	st := NewState()
	st.StoreContinuation(ProtocolResponses, "resp_1")
	st.SetActiveAssistant(&assistant.Config{ID: "a1", Name: "Pirate"})
	assert.Empty(t, st.Continuation(ProtocolResponses))
	assert.Equal(t, "Pirate", st.ActiveAssistant().Name)
}

func TestNewChatClearsSession(t *testing.T) {
	st := NewState()
	st.History.Append(history.Turn{Role: history.RoleUser, Content: "hi"})
	st.StoreContinuation(ProtocolResponses, "resp_1")
	st.RememberImage("https://img.example/1.png")
	st.SetActiveAssistant(&assistant.Config{ID: "a1"})

	st.NewChat()

	assert.Zero(t, st.History.Len())
	assert.Empty(t, st.Continuation(ProtocolResponses))
	assert.Empty(t, st.ConsumeImage())
	// The assistant selection is a settings choice, not chat content.
	assert.NotNil(t, st.ActiveAssistant())
}

func TestLoadChatReplacesHistory(t *testing.T) {
	st := NewState()
	st.History.Append(history.Turn{Role: history.RoleUser, Content: "old"})
	st.StoreContinuation(ProtocolResponses, "resp_1")

	st.LoadChat([]history.Turn{
		{Role: history.RoleUser, Content: "saved question"},
		{Role: history.RoleAssistant, Content: "saved answer"},
	})

	turns := st.History.Snapshot()
	assert.Len(t, turns, 2)
	assert.Equal(t, "saved question", turns[0].Content)
	assert.Empty(t, st.Continuation(ProtocolResponses))
}
