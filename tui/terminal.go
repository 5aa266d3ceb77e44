// ABOUTME: TerminalRenderer renders the accumulated answer markdown as ANSI text with glamour.
// ABOUTME: It satisfies stream.Renderer so the terminal chat re-renders the whole buffer on every delta.
package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/2389-research/cardstream/stream"
)

// DefaultWrap is the word-wrap width used when the terminal width is unknown.
const DefaultWrap = 80

var _ stream.Renderer = (*TerminalRenderer)(nil)

// TerminalRenderer wraps a glamour renderer. It is safe for concurrent use.
type TerminalRenderer struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

// NewTerminalRenderer builds a renderer wrapping at width. An empty style
// picks light or dark from the terminal background; "notty" disables colour.
func NewTerminalRenderer(width int, style string) (*TerminalRenderer, error) {
	if width <= 0 {
		width = DefaultWrap
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	return &TerminalRenderer{tr: tr}, nil
}

// Render converts text to ANSI. Partial input that glamour rejects is shown
// raw until more text arrives.
func (r *TerminalRenderer) Render(text string, final bool) string {
	r.mu.Lock()
	out, err := r.tr.Render(text)
	r.mu.Unlock()
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
