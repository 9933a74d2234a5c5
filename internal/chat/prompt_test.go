package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombinePromptOrdering(t *testing.T) {
	got := CombinePrompt("You are a pirate.", "--- START Knowledge: a ---\nfacts\n--- END Knowledge: a ---", "Hello")
	assert.Equal(t, "You are a pirate.\n\n--- START Knowledge: a ---\nfacts\n--- END Knowledge: a ---\n\nHello", got)
}

func TestCombinePromptSkipsEmptySegments(t *testing.T) {
	assert.Equal(t, "Hello", CombinePrompt("", "", "Hello"))
	assert.Equal(t, "sys\n\nHello", CombinePrompt("sys", "", "Hello"))
	assert.Equal(t, "know\n\nHello", CombinePrompt("", "know", "Hello"))
	assert.Equal(t, "", CombinePrompt("", "", ""))
}

func TestValidImageData(t *testing.T) {
	assert.True(t, ValidImageData("data:image/png;base64,iVBORw0KGgo="))
	assert.True(t, ValidImageData("data:image/jpeg;base64,/9j/4AAQ"))
	assert.False(t, ValidImageData("data:text/plain;base64,aGVsbG8="))
	assert.False(t, ValidImageData("https://example.com/image.png"))
	assert.False(t, ValidImageData("data:image/png;base64,"))
}
