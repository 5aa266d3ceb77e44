// ABOUTME: Server-Sent Events encoder: formats events and streams them over an http.ResponseWriter.
// ABOUTME: Multi-line payloads become one data line each; every write is flushed to the client.

package sse

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("sse: response writer does not support flushing")

// Format renders the event in wire form, terminated by a blank line.
// CRLF and CR in Data are normalized to LF, and each payload line gets its own
// "data:" field so the parser rejoins it unchanged.
func (e Event) Format() string {
	var b strings.Builder
	if e.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", e.ID)
	}
	if e.Type != "" && e.Type != DefaultType {
		fmt.Fprintf(&b, "event: %s\n", e.Type)
	}
	if e.Retry > 0 {
		b.WriteString("retry: " + strconv.Itoa(e.Retry) + "\n")
	}
	data := strings.ReplaceAll(e.Data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

// Writer streams events to a single HTTP client. It is safe for concurrent use
// so a keep-alive ticker can share the connection with the event loop.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

// NewWriter sets the event-stream headers, writes the 200 status, and returns
// a Writer bound to w.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one event and flushes it.
func (sw *Writer) Send(evt Event) error {
	return sw.write(evt.Format())
}

// SendData writes an event with the given type and payload.
func (sw *Writer) SendData(eventType, data string) error {
	return sw.Send(Event{Type: eventType, Data: data})
}

// Comment writes a comment line, used as a keep-alive that parsers ignore.
func (sw *Writer) Comment(text string) error {
	text = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(text)
	return sw.write(": " + text + "\n\n")
}

func (sw *Writer) write(frame string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if _, err := io.WriteString(sw.w, frame); err != nil {
		return fmt.Errorf("sse write: %w", err)
	}
	sw.flusher.Flush()
	return nil
}
