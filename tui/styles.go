// ABOUTME: Defines lipgloss styles for the chat TUI: prompt, thinking steps, answer notices, and the status bar.
// ABOUTME: Provides StyleForState to map stream session states to their display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/cardstream/stream"
)

var (
	// Question echo
	QuestionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Session state colors
	IdleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Thinking steps
	StepStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	StepDetailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Notices shown in place of an answer
	NoticeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Foreground(lipgloss.Color("196")).
			Padding(0, 1)

	// Prompt box
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

// StyleForState returns the style used for a session state.
func StyleForState(state stream.State) lipgloss.Style {
	switch state {
	case stream.Connecting, stream.Streaming:
		return RunningStyle
	case stream.Completed:
		return CompletedStyle
	case stream.Failed, stream.TimedOut:
		return FailedStyle
	default:
		return IdleStyle
	}
}

// SpinnerFrames are the Braille-dot frames shown while a turn is running.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
