package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(frames []Frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		if f.Done {
			out = append(out, "[DONE]")
			continue
		}
		out = append(out, string(f.Data))
	}
	return out
}

func TestBlankLineFraming(t *testing.T) {
	d := NewDecoder(BlankLine)
	frames := d.Feed([]byte("event: response.output_text.delta\ndata: {\"a\":1}\n\ndata: {\"b\":2}\n\n"))
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, collect(frames))
}

func TestFrameSplitAcrossChunks(t *testing.T) {
	d := NewDecoder(BlankLine)
	var got []string
	got = append(got, collect(d.Feed([]byte("data: {\"del")))...)
	got = append(got, collect(d.Feed([]byte("ta\":\"hi\"}")))...)
	assert.Empty(t, got, "no delimiter seen yet")
	got = append(got, collect(d.Feed([]byte("\n\nda")))...)
	require.Equal(t, []string{`{"delta":"hi"}`}, got)
	got = append(got, collect(d.Feed([]byte("ta: [DONE]\n\n")))...)
	assert.Equal(t, []string{`{"delta":"hi"}`, "[DONE]"}, got)
}

func TestSingleLineFraming(t *testing.T) {
	d := NewDecoder(SingleLine)
	frames := d.Feed([]byte("data: {\"x\":1}\ndata: {\"y\":2}\n"))
	assert.Equal(t, []string{`{"x":1}`, `{"y":2}`}, collect(frames))
}

func TestNonDataLinesIgnored(t *testing.T) {
	d := NewDecoder(SingleLine)
	frames := d.Feed([]byte(": keepalive\nevent: ping\ndata: {}\n"))
	assert.Equal(t, []string{"{}"}, collect(frames))
}

func TestCloseFlushesTrailingBuffer(t *testing.T) {
	d := NewDecoder(BlankLine)
	assert.Empty(t, d.Feed([]byte("data: {\"tail\":true}")))
	frames := d.Close()
	assert.Equal(t, []string{`{"tail":true}`}, collect(frames))
	assert.Empty(t, d.Close(), "second close has nothing left")
}

func TestDoneSentinel(t *testing.T) {
	d := NewDecoder(BlankLine)
	frames := d.Feed([]byte("data: [DONE]\n\n"))
	require.Len(t, frames, 1)
	assert.True(t, frames[0].Done)
}

func TestEmptyChunkIsNoOp(t *testing.T) {
	d := NewDecoder(BlankLine)
	assert.Nil(t, d.Feed(nil))
	assert.Nil(t, d.Feed([]byte{}))
}
