// Package sse decodes server-sent-event style streaming bodies into discrete
// frames. It is protocol-agnostic: the per-vendor adapters interpret the frame
// payloads, this package only handles framing. Two framing modes exist because
// the upstreams disagree: OpenAI-style endpoints separate events with a blank
// line, while Gemini and Grok emit one event per line.
package sse

import (
	"bytes"
	"strings"
)

// FramingMode selects the delimiter used to split the byte stream into frames.
type FramingMode int

const (
	// BlankLine splits on "\n\n" and then scans the individual lines of each
	// event block. Used by the Chat Completions and Responses endpoints.
	BlankLine FramingMode = iota
	// SingleLine treats every newline-terminated line as its own frame.
	// Used by the Gemini and Grok endpoints.
	SingleLine
)

// Frame is one decoded unit of the stream: the payload following a
// "data: " marker, or the terminal [DONE] sentinel.
type Frame struct {
	// Data is the raw payload with the data marker and surrounding
	// whitespace stripped. Empty for sentinel frames.
	Data []byte
	// Done is set when the payload was the literal [DONE] sentinel.
	Done bool
}

var dataTag = []byte("data:")

const doneSentinel = "[DONE]"

// Decoder incrementally splits raw body chunks into frames. Chunks may cut
// frames at arbitrary byte positions; the carry-over buffer holds the
// incomplete tail until the next Feed or the final Close.
type Decoder struct {
	mode   FramingMode
	buffer bytes.Buffer
}

// NewDecoder returns a decoder for the given framing mode.
func NewDecoder(mode FramingMode) *Decoder {
	return &Decoder{mode: mode}
}

// Feed appends a raw chunk and returns every complete frame it unlocked.
// Lines without the data marker (event: lines, comments) are dropped.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if len(chunk) == 0 {
		return nil
	}
	d.buffer.Write(chunk)
	return d.drain(false)
}

// Close flushes the carry-over buffer once the underlying stream reports
// completion. Any trailing non-empty partial frame is decoded as-is.
func (d *Decoder) Close() []Frame {
	return d.drain(true)
}

func (d *Decoder) drain(flush bool) []Frame {
	var frames []Frame
	delim := []byte("\n\n")
	if d.mode == SingleLine {
		delim = []byte("\n")
	}
	for {
		raw := d.buffer.Bytes()
		idx := bytes.Index(raw, delim)
		if idx == -1 {
			break
		}
		block := make([]byte, idx)
		copy(block, raw[:idx])
		d.buffer.Next(idx + len(delim))
		frames = append(frames, decodeBlock(block)...)
	}
	if flush && d.buffer.Len() > 0 {
		tail := strings.TrimSpace(d.buffer.String())
		d.buffer.Reset()
		if tail != "" {
			frames = append(frames, decodeBlock([]byte(tail))...)
		}
	}
	return frames
}

// decodeBlock extracts data frames from one event block. Blank-line mode
// blocks may span several lines ("event: ..." then "data: ...").
func decodeBlock(block []byte) []Frame {
	var frames []Frame
	for _, line := range bytes.Split(block, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, dataTag) {
			continue
		}
		payload := bytes.TrimSpace(line[len(dataTag):])
		if string(payload) == doneSentinel {
			frames = append(frames, Frame{Done: true})
			continue
		}
		frames = append(frames, Frame{Data: payload})
	}
	return frames
}
