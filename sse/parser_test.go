// ABOUTME: Tests for the SSE parser against the chat stream event sequences.
// ABOUTME: Covers tool_call/message/done framing, payload-less terminals, line endings, and comments.

package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// collect drains a parser into a slice, failing on any non-EOF error.
func collect(t *testing.T, input string) []Event {
	t.Helper()
	p := NewParser(strings.NewReader(input))
	var got []Event
	for {
		evt, err := p.Next()
		if err == io.EOF {
			return got
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, evt)
	}
}

func TestParserSequences(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		events []Event
	}{
		{
			name:  "default type",
			input: "data: hello\n\n",
			events: []Event{
				{Type: "message", Data: "hello", Retry: -1},
			},
		},
		{
			name: "chat turn",
			input: "event: tool_call\ndata: {\"name\":\"stock_quote\",\"args\":{\"ticker\":\"AAPL\"}}\n\n" +
				"event: message\ndata: {\"content\":\"## Market\"}\n\n" +
				"event: done\ndata: [DONE]\n\n",
			events: []Event{
				{Type: "tool_call", Data: `{"name":"stock_quote","args":{"ticker":"AAPL"}}`, Retry: -1},
				{Type: "message", Data: `{"content":"## Market"}`, Retry: -1},
				{Type: "done", Data: "[DONE]", Retry: -1},
			},
		},
		{
			name:  "done without payload",
			input: "event: message\ndata: {\"content\":\"x\"}\n\nevent: done\n\n",
			events: []Event{
				{Type: "message", Data: `{"content":"x"}`, Retry: -1},
				{Type: "done", Retry: -1},
			},
		},
		{
			name:  "done without payload at eof",
			input: "event: done",
			events: []Event{
				{Type: "done", Retry: -1},
			},
		},
		{
			name:  "multi-line data joined with LF",
			input: "data: a\ndata:\ndata: c\n\n",
			events: []Event{
				{Type: "message", Data: "a\n\nc", Retry: -1},
			},
		},
		{
			name:  "single leading space stripped",
			input: "data:  two\ndata:none\n\n",
			events: []Event{
				{Type: "message", Data: " two\nnone", Retry: -1},
			},
		},
		{
			name:  "id and retry",
			input: "id: 7\nretry: 1000\ndata: configured\n\nretry: soon\ndata: next\n\n",
			events: []Event{
				{Type: "message", Data: "configured", ID: "7", Retry: 1000},
				{Type: "message", Data: "next", Retry: -1},
			},
		},
		{
			name:  "type resets between events",
			input: "event: error\ndata: {}\n\ndata: plain\n\n",
			events: []Event{
				{Type: "error", Data: "{}", Retry: -1},
				{Type: "message", Data: "plain", Retry: -1},
			},
		},
		{
			name:  "keep-alive comments",
			input: ": keep-alive\n\n: keep-alive\nevent: message\ndata: x\n: mid\n\n",
			events: []Event{
				{Type: "message", Data: "x", Retry: -1},
			},
		},
		{
			name:  "unknown field ignored",
			input: "foo: bar\ndata: known\n\n",
			events: []Event{
				{Type: "message", Data: "known", Retry: -1},
			},
		},
		{
			name:  "CRLF",
			input: "event: message\r\ndata: crlf\r\n\r\n",
			events: []Event{
				{Type: "message", Data: "crlf", Retry: -1},
			},
		},
		{
			name:  "CR only",
			input: "data: cr-only\r\r",
			events: []Event{
				{Type: "message", Data: "cr-only", Retry: -1},
			},
		},
		{
			name:  "mixed endings",
			input: "data: mixed\r\ndata: endings\n\r\n",
			events: []Event{
				{Type: "message", Data: "mixed\nendings", Retry: -1},
			},
		},
		{
			name:  "no trailing blank line",
			input: "data: tail",
			events: []Event{
				{Type: "message", Data: "tail", Retry: -1},
			},
		},
		{name: "only comments", input: ": one\n: two\n"},
		{name: "only blank lines", input: "\n\n\n"},
		{name: "empty input", input: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := collect(t, tc.input)
			if len(got) != len(tc.events) {
				t.Fatalf("expected %d events, got %d: %+v", len(tc.events), len(got), got)
			}
			for i, want := range tc.events {
				if got[i] != want {
					t.Errorf("event %d: expected %+v, got %+v", i, want, got[i])
				}
			}
		})
	}
}

func TestParserEOFIsSticky(t *testing.T) {
	p := NewParser(strings.NewReader("data: once\n\n"))
	if _, err := p.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Next(); err != io.EOF {
			t.Fatalf("call %d: expected io.EOF, got %v", i, err)
		}
	}
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(b []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(b, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestParserSurfacesReaderError(t *testing.T) {
	boom := errors.New("connection reset")
	p := NewParser(&failingReader{data: "data: partial\n", err: boom})

	_, err := p.Next()
	if !errors.Is(err, boom) {
		t.Fatalf("expected reader error, got %v", err)
	}
}

func TestParserLargePayload(t *testing.T) {
	big := strings.Repeat("x", 100000)
	got := collect(t, "data: "+big+"\n\n")
	if len(got) != 1 || got[0].Data != big {
		t.Fatalf("large payload not preserved")
	}
}
