// ABOUTME: Implements a single-line status bar for the bottom of the chat TUI showing session progress.
// ABOUTME: Displays the session state, elapsed time, thinking step count, and finished turn count.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/2389-research/cardstream/stream"
)

// StatusBarModel displays session status in a single line.
type StatusBarModel struct {
	state     stream.State
	startTime time.Time
	endTime   time.Time
	steps     int
	turns     int
	width     int
}

// NewStatusBarModel creates an idle StatusBarModel.
func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{}
}

// Start records the start of a turn.
func (m *StatusBarModel) Start(now time.Time) {
	m.state = stream.Connecting
	m.startTime = now
	m.endTime = time.Time{}
	m.steps = 0
}

// SetState updates the displayed session state.
func (m *StatusBarModel) SetState(state stream.State) {
	m.state = state
}

// SetSteps updates the thinking step count.
func (m *StatusBarModel) SetSteps(n int) {
	m.steps = n
}

// Finish records the end of a turn.
func (m *StatusBarModel) Finish(state stream.State, now time.Time) {
	m.state = state
	m.endTime = now
	m.turns++
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// Elapsed returns the running time of the current or last turn.
func (m StatusBarModel) Elapsed(now time.Time) time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	if !m.endTime.IsZero() {
		return m.endTime.Sub(m.startTime)
	}
	return now.Sub(m.startTime)
}

// formatElapsed formats a duration as a human-readable string.
// Durations under a minute show with one decimal (e.g. "2.3s").
// Durations of a minute or more show as minutes and seconds (e.g. "2m30s").
func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Truncate(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View(now time.Time) string {
	content := fmt.Sprintf("cardstream | %s | %s | %d steps | %d turns",
		StyleForState(m.state).Render(m.state.String()), formatElapsed(m.Elapsed(now)), m.steps, m.turns)

	if m.width <= 0 {
		return StatusBarStyle.Render(content)
	}
	// Two cells of padding.
	if m.width > 2 {
		content = truncate.StringWithTail(content, uint(m.width-2), "…")
	}
	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
