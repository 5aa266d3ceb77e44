// ABOUTME: Server-Sent Events (SSE) stream parser used by the chat stream client.
// ABOUTME: Reads an io.Reader and yields typed events following EventSource line rules.

package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// DefaultType is the event type assigned when a block carries no "event:" field.
const DefaultType = "message"

// Event is a single Server-Sent Event, either parsed from a stream or built for writing.
type Event struct {
	Type  string // from "event:" line, defaults to "message"
	Data  string // from "data:" line(s), joined with newlines for multi-line
	ID    string // from "id:" line
	Retry int    // from "retry:" line, -1 if not set
}

// Parser reads SSE events from an io.Reader.
type Parser struct {
	scanner *lineScanner
	done    bool
	pending pendingEvent
}

// pendingEvent accumulates the fields of the event currently being read.
type pendingEvent struct {
	eventType string
	dataLines []string
	hasData   bool
	id        string
	retry     int
}

// NewParser creates a new SSE parser that reads from the given reader.
func NewParser(reader io.Reader) *Parser {
	return &Parser{
		scanner: newLineScanner(reader),
		pending: pendingEvent{retry: -1},
	}
}

// Next returns the next SSE event from the stream.
// Returns io.EOF when the stream ends. Any other error comes from the underlying reader.
func (p *Parser) Next() (Event, error) {
	if p.done {
		return Event{}, io.EOF
	}

	for {
		line, err := p.scanner.readLine()
		if err != nil {
			if err == io.EOF {
				p.done = true
				if p.pending.dispatchable() {
					return p.flush(), nil
				}
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if line == "" {
			// Consecutive blank lines carry nothing.
			if !p.pending.dispatchable() {
				continue
			}
			return p.flush(), nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		p.pending.apply(field, value)
	}
}

// flush builds the pending event and resets the accumulator.
func (p *Parser) flush() Event {
	evt := p.pending.build()
	p.pending = pendingEvent{retry: -1}
	return evt
}

// dispatchable reports whether the accumulated fields form an event. Unlike a
// browser EventSource, a block that names its type but has no data is still
// dispatched: terminal events such as "done" may arrive without a payload.
func (e *pendingEvent) dispatchable() bool {
	return e.hasData || e.eventType != ""
}

// apply records one parsed field.
func (e *pendingEvent) apply(field, value string) {
	switch field {
	case "event":
		e.eventType = value
	case "data":
		e.dataLines = append(e.dataLines, value)
		e.hasData = true
	case "id":
		e.id = value
	case "retry":
		// Invalid retry values are ignored.
		if n, err := strconv.Atoi(value); err == nil {
			e.retry = n
		}
	}
}

func (e *pendingEvent) build() Event {
	eventType := e.eventType
	if eventType == "" {
		eventType = DefaultType
	}
	return Event{
		Type:  eventType,
		Data:  strings.Join(e.dataLines, "\n"),
		ID:    e.id,
		Retry: e.retry,
	}
}

// parseLine splits an SSE line into field name and value.
// Without a colon the whole line is the field name and the value is empty.
// A single leading space after the colon is stripped.
func parseLine(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}

// lineScanner reads lines treating CR, LF, and CRLF as terminators.
// bufio.Scanner does not split on a lone CR, which EventSource streams allow.
type lineScanner struct {
	reader *bufio.Reader
}

func newLineScanner(r io.Reader) *lineScanner {
	return &lineScanner{reader: bufio.NewReaderSize(r, 4096)}
}

// readLine reads one line from the reader, stripping the line ending.
func (s *lineScanner) readLine() (string, error) {
	var line strings.Builder
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			if err == io.EOF && line.Len() > 0 {
				return line.String(), nil
			}
			return "", err
		}

		switch b {
		case '\n':
			return line.String(), nil
		case '\r':
			// Swallow the LF of a CRLF pair.
			if next, err := s.reader.ReadByte(); err == nil && next != '\n' {
				_ = s.reader.UnreadByte()
			}
			return line.String(), nil
		default:
			line.WriteByte(b)
		}
	}
}
