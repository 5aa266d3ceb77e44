// ABOUTME: Producer abstraction for the server side of the chat stream protocol.
// ABOUTME: Producers report tool calls and answer deltas through an Emitter; the handler frames them as SSE.

// Package upstream serves the chat stream that the stream package consumes:
// tool_call and message events, then done or error.
package upstream

import (
	"context"
	"errors"
	"strings"
)

// ErrNoMessage rejects requests without a message.
var ErrNoMessage = errors.New("message is required")

// Emitter receives the events of one turn in order.
type Emitter interface {
	ToolCall(name string, args map[string]any) error
	Message(text string) error
}

// Producer answers one message. Returning a non-nil error ends the turn with
// an error event; returning nil ends it with done.
type Producer interface {
	Name() string
	Produce(ctx context.Context, message string, emit Emitter) error
}

// collector gathers the answer text of a turn for the non-streaming endpoint.
type collector struct {
	text strings.Builder
}

func (c *collector) ToolCall(string, map[string]any) error { return nil }

func (c *collector) Message(text string) error {
	c.text.WriteString(text)
	return nil
}
