// Package provider holds the pieces shared by every upstream adapter:
// typed HTTP status errors, classification of non-2xx responses into
// user-facing messages, and the generic stream consumption loop that feeds
// decoded frames through an adapter into a session.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/omnichat-dev/omnichat/internal/sse"
	"github.com/omnichat-dev/omnichat/internal/stream"
)

// StatusError carries the upstream HTTP status alongside the classified
// user-facing message.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("status %d", e.Code)
}

// StatusCode returns the upstream HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

// ClassifyError turns a non-2xx upstream response into a StatusError whose
// message prefers the upstream-provided error detail and falls back to a
// generic status-code message. label names the upstream in the message
// ("DALL-E", "TTS", "Gemini", ...).
func ClassifyError(label string, status int, body []byte) *StatusError {
	detail := gjson.GetBytes(body, "error.message").String()
	if detail == "" {
		detail = fmt.Sprintf("HTTP error! Status: %d", status)
	}
	var msg string
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		msg = fmt.Sprintf("Authentication Error: Invalid API Key for %s.", label)
	case status == http.StatusTooManyRequests:
		msg = fmt.Sprintf("Rate Limit Exceeded for %s.", label)
	case status == http.StatusBadRequest:
		msg = fmt.Sprintf("Invalid Request for %s: %s", label, detail)
	case status >= 500:
		msg = fmt.Sprintf("%s Server Error (%d): %s", label, status, detail)
	default:
		msg = fmt.Sprintf("%s Error: %s", label, detail)
	}
	log.Debugf("request error, error status: %d, error body: %s", status, string(body))
	return &StatusError{Code: status, Msg: msg}
}

// DecodeFunc translates one wire frame into uniform events. A returned
// error marks the frame malformed; the consume loop degrades it to the
// inline error marker and ends the session.
type DecodeFunc func(data []byte) ([]stream.Event, error)

// Consume reads the streaming body to completion, feeding decoded frames
// through decode into the session. It honors the [DONE] sentinel, stops as
// soon as the session reports a terminal state, and flushes the decoder's
// carry-over buffer when the body closes. Read failures other than EOF end
// the session with whatever was accumulated; the caller's finalize pass
// preserves partial output.
func Consume(ctx context.Context, body io.ReadCloser, mode sse.FramingMode, decode DecodeFunc, sess *stream.Session, ui stream.Surface) {
	defer func() { _ = body.Close() }()
	dec := sse.NewDecoder(mode)
	buf := make([]byte, 32*1024)
	for !sess.Ended() {
		n, err := body.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				handleFrame(frame, decode, sess, ui)
				if sess.Ended() {
					break
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Errorf("provider: stream read failed: %v", err)
			}
			break
		}
	}
	if !sess.Ended() {
		for _, frame := range dec.Close() {
			handleFrame(frame, decode, sess, ui)
			if sess.Ended() {
				break
			}
		}
	}
	sess.End()
}

func handleFrame(frame sse.Frame, decode DecodeFunc, sess *stream.Session, ui stream.Surface) {
	if frame.Done {
		sess.End()
		return
	}
	events, err := decode(frame.Data)
	if err != nil {
		sess.FailDecode(ui, err)
		return
	}
	for _, ev := range events {
		sess.Apply(ev, ui)
	}
}
