package chat

import (
	"regexp"
	"strings"
)

// imageDataPattern recognizes the inline image data URIs accepted by the
// multi-modal request paths.
var imageDataPattern = regexp.MustCompile(`^data:image/(jpeg|png|gif|webp);base64,[A-Za-z0-9+/=]+$`)

// ValidImageData reports whether data is a recognized embedded-image data URI.
func ValidImageData(data string) bool {
	return imageDataPattern.MatchString(data)
}

// CombinePrompt flattens the system prompt, knowledge text and user text
// into one field, in that order. Empty segments are skipped so the result
// never carries stray separators.
func CombinePrompt(systemPrompt, knowledge, userText string) string {
	segments := make([]string, 0, 3)
	for _, seg := range []string{systemPrompt, knowledge, userText} {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return strings.Join(segments, "\n\n")
}
