package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegenerateRemovesOnlyTrailingAssistantTurn(t *testing.T) {
	s := NewStore()
	s.Append(Turn{Role: RoleUser, Content: "hi"})
	s.Append(Turn{Role: RoleAssistant, Content: "hello"})

	assert.True(t, s.RemoveLastAssistant())
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, Turn{Role: RoleUser, Content: "hi"}, snap[0])

	// No trailing assistant turn left: must be a no-op.
	assert.False(t, s.RemoveLastAssistant())
	assert.Equal(t, 1, s.Len())
}

func TestLastUserTurn(t *testing.T) {
	s := NewStore()
	_, ok := s.LastUserTurn()
	assert.False(t, ok)

	s.Append(Turn{Role: RoleUser, Content: "first"})
	s.Append(Turn{Role: RoleAssistant, Content: "reply"})
	s.Append(Turn{Role: RoleUser, Content: "second", ImageData: "data:image/png;base64,xyz"})
	s.Append(Turn{Role: RoleAssistant, Content: "reply2"})

	turn, ok := s.LastUserTurn()
	require.True(t, ok)
	assert.Equal(t, "second", turn.Content)
	assert.NotEmpty(t, turn.ImageData)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Append(Turn{Role: RoleUser, Content: "original"})
	snap := s.Snapshot()
	snap[0].Content = "mutated"
	assert.Equal(t, "original", s.Snapshot()[0].Content)
}

func TestReplace(t *testing.T) {
	s := NewStore()
	s.Append(Turn{Role: RoleUser, Content: "old"})
	s.Replace([]Turn{{Role: RoleUser, Content: "a"}, {Role: RoleAssistant, Content: "b"}})
	assert.Equal(t, 2, s.Len())
	s.Replace(nil)
	assert.Equal(t, 0, s.Len())
}
