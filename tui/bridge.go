// ABOUTME: Bridge connecting stream sessions to the Bubble Tea message loop.
// ABOUTME: Bridge implements stream.Display via program.Send; tea.Cmd factories run turns and ticks.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/cardstream/stream"
)

// Compile-time interface assertion: *Bridge implements stream.Display.
var _ stream.Display = (*Bridge)(nil)

// Bridge forwards display callbacks into the message loop. Attach must be
// called with program.Send before the program starts.
type Bridge struct {
	send func(msg tea.Msg)
}

// NewBridge creates a Bridge that sends messages via the given function.
// send may be nil and attached later.
func NewBridge(send func(msg tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

// Attach sets the send function, typically program.Send.
func (b *Bridge) Attach(send func(msg tea.Msg)) {
	b.send = send
}

func (b *Bridge) emit(msg tea.Msg) {
	if b.send != nil {
		b.send(msg)
	}
}

func (b *Bridge) AddStep(step stream.Step) { b.emit(StepMsg{Step: step}) }

func (b *Bridge) FinishThinking(elapsed time.Duration) { b.emit(ThinkingDoneMsg{Elapsed: elapsed}) }

func (b *Bridge) ShowContent(content string, final bool) {
	b.emit(ContentMsg{Content: content, Final: final})
}

func (b *Bridge) ShowError(notice string) { b.emit(NoticeMsg{Notice: notice}) }

// Submitter runs one turn; *stream.Gate satisfies it.
type Submitter interface {
	Submit(ctx context.Context, message string, display stream.Display) (stream.Outcome, error)
}

// RunTurnCmd returns a tea.Cmd that runs one turn. Display callbacks reach the
// program through display while the turn runs; the outcome arrives as a
// TurnResultMsg afterwards.
func RunTurnCmd(ctx context.Context, gate Submitter, message string, display stream.Display) tea.Cmd {
	return func() tea.Msg {
		out, err := gate.Submit(ctx, message, display)
		return TurnResultMsg{Outcome: out, Err: err}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
