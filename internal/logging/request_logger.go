// Request logging captures every upstream provider exchange to a file when
// enabled through configuration, including streaming response bodies as
// they arrive.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const redactedHeaderValue = "[REDACTED]"

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"x-api-key":           true,
	"proxy-authorization": true,
}

// RequestLogTransport is an http.RoundTripper that writes each upstream
// request and its (possibly streaming) response to a file under LogsDir.
// A nil Base falls back to http.DefaultTransport.
type RequestLogTransport struct {
	Base    http.RoundTripper
	LogsDir string
}

// NewRequestLogTransport wraps base with per-request file logging.
func NewRequestLogTransport(base http.RoundTripper, logsDir string) *RequestLogTransport {
	return &RequestLogTransport{Base: base, LogsDir: logsDir}
}

// RoundTrip executes the request and tees the response body into the log
// file as the caller reads it. Logging failures never fail the request.
func (t *RequestLogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	resp, err := base.RoundTrip(req)

	file, errCreate := t.createLogFile(req.URL.Path)
	if errCreate != nil {
		log.Warnf("logging: cannot create request log file: %v", errCreate)
		return resp, err
	}

	writeRequestInfo(file, req, reqBody)
	if err != nil {
		fmt.Fprintf(file, "=== ERROR ===\n%v\n", err)
		_ = file.Close()
		return resp, err
	}

	fmt.Fprintf(file, "=== RESPONSE ===\nStatus: %d\n", resp.StatusCode)
	writeHeaders(file, resp.Header)
	fmt.Fprint(file, "\n=== BODY ===\n")
	resp.Body = &loggedBody{body: resp.Body, file: file}
	return resp, nil
}

func (t *RequestLogTransport) createLogFile(urlPath string) (*os.File, error) {
	if err := os.MkdirAll(t.LogsDir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s-%d.log", sanitizeForFilename(urlPath), time.Now().UnixNano())
	return os.Create(filepath.Join(t.LogsDir, name))
}

func writeRequestInfo(w io.Writer, req *http.Request, body []byte) {
	fmt.Fprintf(w, "=== REQUEST ===\n%s %s\nTime: %s\n", req.Method, req.URL.String(), time.Now().Format("2006-01-02 15:04:05"))
	writeHeaders(w, req.Header)
	if len(body) > 0 {
		fmt.Fprintf(w, "\n%s\n\n", body)
	} else {
		fmt.Fprint(w, "\n")
	}
}

func writeHeaders(w io.Writer, headers http.Header) {
	for key, values := range headers {
		value := strings.Join(values, ", ")
		if sensitiveHeaders[strings.ToLower(key)] {
			value = redactedHeaderValue
		}
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"|?*\s]`)
	repeatedHyphens     = regexp.MustCompile(`-+`)
)

// sanitizeForFilename replaces characters that are not safe for filenames.
func sanitizeForFilename(path string) string {
	sanitized := strings.ReplaceAll(path, "/", "-")
	sanitized = strings.ReplaceAll(sanitized, ":", "-")
	sanitized = unsafeFilenameChars.ReplaceAllString(sanitized, "-")
	sanitized = repeatedHyphens.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		sanitized = "root"
	}
	return sanitized
}

// loggedBody copies everything the caller reads into the log file and
// closes the file together with the body.
type loggedBody struct {
	body io.ReadCloser
	file *os.File
}

func (b *loggedBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 {
		_, _ = b.file.Write(p[:n])
	}
	return n, err
}

func (b *loggedBody) Close() error {
	_ = b.file.Close()
	return b.body.Close()
}
