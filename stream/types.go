// ABOUTME: Shared types for chat stream sessions: states, thinking steps, tool calls, outcomes, notices.
// ABOUTME: Display is the presentation collaborator that receives rendered markup and progress.

// Package stream consumes one chat turn from a server-sent event channel,
// re-rendering the accumulated answer on every delta while an idle watchdog
// guards against silence.
package stream

import (
	"context"
	"time"

	"github.com/2389-research/cardstream/sse"
)

// DefaultIdleTimeout is the watchdog window measured from the latest event.
const DefaultIdleTimeout = 60 * time.Second

// Event kinds of the inbound chat protocol.
const (
	EventToolCall = "tool_call"
	EventMessage  = "message"
	EventDone     = "done"
	EventError    = "error"
)

// State is the lifecycle position of a Session.
type State int

const (
	Idle State = iota
	Connecting
	Streaming
	Completed
	Failed
	TimedOut
)

var stateNames = [...]string{
	Idle:       "idle",
	Connecting: "connecting",
	Streaming:  "streaming",
	Completed:  "completed",
	Failed:     "failed",
	TimedOut:   "timed_out",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == TimedOut
}

// ParseState converts a stored state name back to a State.
func ParseState(name string) State {
	for i, n := range stateNames {
		if n == name {
			return State(i)
		}
	}
	return Idle
}

// Step is one entry of the thinking indicator, derived from a tool call.
type Step struct {
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
}

// ToolCall is the payload of a tool_call event.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Display receives everything a session shows to the user. Calls arrive from
// the goroutine running the session, in event order.
type Display interface {
	// AddStep appends a thinking step.
	AddStep(step Step)
	// FinishThinking closes the thinking indicator and reveals the content area.
	FinishThinking(elapsed time.Duration)
	// ShowContent replaces the content area with markup for the whole answer so far.
	ShowContent(markup string, final bool)
	// ShowError replaces the content area with a notice. It is only called
	// while no content is visible.
	ShowError(notice string)
}

// Renderer turns the accumulated answer into markup. Sessions without one
// use the card renderer.
type Renderer interface {
	Render(text string, final bool) string
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(text string, final bool) string

// Render calls f.
func (f RendererFunc) Render(text string, final bool) string { return f(text, final) }

// StepNamer describes a tool call for the thinking indicator.
type StepNamer interface {
	Step(name string, args map[string]any) (label, detail string)
}

// Source opens the event channel for one message.
type Source interface {
	Open(ctx context.Context, message string) (Conn, error)
}

// Conn is an open event channel. Events is closed when the channel ends; Err
// then reports why, or nil on a clean end of stream.
type Conn interface {
	Events() <-chan sse.Event
	Err() error
	Close() error
}

// Notices are the user-facing texts for failures without a server message.
type Notices struct {
	Timeout   string
	Channel   string
	Transport string
}

// DefaultNotices are the English notices.
var DefaultNotices = Notices{
	Timeout:   "Request timed out, please try again later.",
	Channel:   "Something went wrong while processing the request.",
	Transport: "Connection failed, check that the backend service is running.",
}

// Outcome summarises a finished session.
type Outcome struct {
	SessionID string
	Message   string
	State     State
	Text      string
	ToolCalls []ToolCall
	Thinking  time.Duration
	Notice    string
	StartedAt time.Time
	EndedAt   time.Time
}

// Recorder persists finished sessions.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}
