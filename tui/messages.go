// ABOUTME: Bubble Tea message types used in the chat TUI message loop.
// ABOUTME: Each display callback of a stream session arrives as one of these messages.
package tui

import (
	"time"

	"github.com/2389-research/cardstream/stream"
)

// StepMsg carries a thinking step.
type StepMsg struct {
	Step stream.Step
}

// ThinkingDoneMsg marks the end of the thinking phase.
type ThinkingDoneMsg struct {
	Elapsed time.Duration
}

// ContentMsg carries the answer rendered so far.
type ContentMsg struct {
	Content string
	Final   bool
}

// NoticeMsg carries a failure notice.
type NoticeMsg struct {
	Notice string
}

// TurnResultMsg signals that the session for a turn has ended.
type TurnResultMsg struct {
	Outcome stream.Outcome
	Err     error
}

// TickMsg is sent periodically to advance the spinner and elapsed time.
type TickMsg struct {
	Time time.Time
}
