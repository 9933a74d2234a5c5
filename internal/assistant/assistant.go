// Package assistant models custom assistant configurations: an optional
// override bundle of instructions, knowledge files and capability toggles
// that the router merges over the user's defaults.
package assistant

import (
	"fmt"
	"strings"
)

// Config is one custom assistant definition.
type Config struct {
	ID           string          `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Description  string          `json:"description,omitempty" yaml:"description,omitempty"`
	Instructions string          `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Knowledge    []KnowledgeFile `json:"knowledgeFiles,omitempty" yaml:"knowledge-files,omitempty"`
	Capabilities Capabilities    `json:"capabilities" yaml:"capabilities"`
}

// KnowledgeFile is one ingested knowledge document. Extraction happens in
// the upload pipeline; configs only carry the extracted text. A file that
// failed extraction keeps its error and contributes nothing to prompts.
type KnowledgeFile struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Capabilities are the feature toggles an assistant may force on or off.
type Capabilities struct {
	WebSearch       *bool `json:"webSearch,omitempty" yaml:"web-search,omitempty"`
	ImageGeneration *bool `json:"imageGeneration,omitempty" yaml:"image-generation,omitempty"`
}

// KnowledgeText concatenates the usable knowledge files with the fencing
// the models are prompted to respect. Empty when nothing usable exists.
func (c *Config) KnowledgeText() string {
	if c == nil {
		return ""
	}
	var blocks []string
	for _, kf := range c.Knowledge {
		if kf.Content == "" || kf.Error != "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("--- START Knowledge: %s ---\n%s\n--- END Knowledge: %s ---", kf.Name, kf.Content, kf.Name))
	}
	return strings.Join(blocks, "\n\n")
}
