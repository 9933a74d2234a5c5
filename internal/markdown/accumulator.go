// Package markdown holds the growing raw text of an in-progress response and
// renders it for display. Streaming display and final rendering are split on
// purpose: re-parsing partial markdown on every chunk flickers and corrupts
// half-open constructs, so each chunk is only entity-escaped while it streams
// and the full buffer goes through one markdown pass at the end.
package markdown

import (
	"html"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Strikethrough,
		extension.Table,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// Accumulator buffers the raw text of one streamed response. It is
// single-writer: only the active stream session appends to it, and Reset
// must run before the buffer is reused for a new response.
type Accumulator struct {
	raw strings.Builder
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Reset clears the raw buffer for a new response.
func (a *Accumulator) Reset() {
	a.raw.Reset()
}

// Accumulate appends chunk verbatim to the raw buffer and returns an
// HTML-escaped copy of just that chunk for immediate safe display. An empty
// chunk is a no-op returning the empty string.
func (a *Accumulator) Accumulate(chunk string) string {
	if chunk == "" {
		return ""
	}
	a.raw.WriteString(chunk)
	return html.EscapeString(chunk)
}

// RenderFinal renders the entire accumulated buffer as HTML. It never
// mutates the buffer, so repeated calls return identical output; the
// finalize fallback paths rely on that. On a renderer error the escaped raw
// text is returned so partial output is never lost.
func (a *Accumulator) RenderFinal() string {
	var out strings.Builder
	if err := renderer.Convert([]byte(a.raw.String()), &out); err != nil {
		log.Errorf("markdown: final render failed: %v", err)
		return html.EscapeString(a.raw.String())
	}
	return out.String()
}

// RawText returns the unmodified accumulated text, used for history
// persistence and clipboard copy.
func (a *Accumulator) RawText() string {
	return a.raw.String()
}

// Render converts an arbitrary markdown string to HTML with the same
// options as RenderFinal. Used for reasoning sections and stored messages.
func Render(text string) string {
	var out strings.Builder
	if err := renderer.Convert([]byte(text), &out); err != nil {
		log.Errorf("markdown: render failed: %v", err)
		return html.EscapeString(text)
	}
	return out.String()
}

// Escape entity-encodes text for direct insertion into the message body.
func Escape(text string) string {
	return html.EscapeString(text)
}
