// ABOUTME: ChatModel is an inline Bubble Tea model for asking questions and watching answers stream in.
// ABOUTME: Shows thinking steps with a spinner, the live answer, notices, and prints finished turns above the prompt.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/2389-research/cardstream/stream"
)

// tickInterval drives the spinner while a turn runs.
const tickInterval = 100 * time.Millisecond

// ChatOption configures optional ChatModel behavior.
type ChatOption func(*ChatModel)

// WithMessage submits message on start and quits once its turn ends.
func WithMessage(message string) ChatOption {
	return func(m *ChatModel) {
		m.initial = strings.TrimSpace(message)
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ChatOption {
	return func(m *ChatModel) {
		m.now = now
	}
}

// ChatModel is an inline (non-alt-screen) Bubble Tea model running one turn
// at a time through a Submitter.
type ChatModel struct {
	ctx    context.Context
	gate   Submitter
	bridge *Bridge
	now    func() time.Time

	input   textinput.Model
	status  StatusBarModel
	initial string
	initCmd tea.Cmd

	// Current turn
	running      bool
	cancel       context.CancelFunc
	question     string
	steps        []stream.Step
	thinkingDone bool
	thinking     time.Duration
	content      string
	notice       string
	last         stream.Outcome

	spinnerIdx int
	quitting   bool
	width      int
}

// NewChatModel creates a ChatModel. bridge must be attached to the program
// that runs the model.
func NewChatModel(ctx context.Context, gate Submitter, bridge *Bridge, opts ...ChatOption) ChatModel {
	if ctx == nil {
		ctx = context.Background()
	}
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = "Ask about a ticker, e.g. How is AAPL doing?"
	ti.Focus()

	m := ChatModel{
		ctx:    ctx,
		gate:   gate,
		bridge: bridge,
		now:    time.Now,
		input:  ti,
		status: NewStatusBarModel(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.initial != "" {
		m.initCmd = m.start(m.initial)
	}
	return m
}

// Last returns the outcome of the most recent turn.
func (m ChatModel) Last() stream.Outcome {
	return m.last
}

// Running reports whether a turn is in progress.
func (m ChatModel) Running() bool {
	return m.running
}

// Init implements tea.Model.
func (m ChatModel) Init() tea.Cmd {
	if m.initCmd != nil {
		return m.initCmd
	}
	return textinput.Blink
}

// Update implements tea.Model. Routes incoming messages to appropriate handlers.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.status.SetWidth(msg.Width)
		m.input.Width = max(10, msg.Width-8)
		return m, nil

	case StepMsg:
		if m.running {
			m.steps = append(m.steps, msg.Step)
			m.status.SetSteps(len(m.steps))
			m.status.SetState(stream.Streaming)
		}
		return m, nil

	case ThinkingDoneMsg:
		if m.running {
			m.thinkingDone = true
			m.thinking = msg.Elapsed
		}
		return m, nil

	case ContentMsg:
		if m.running {
			m.content = msg.Content
			m.status.SetState(stream.Streaming)
		}
		return m, nil

	case NoticeMsg:
		if m.running {
			m.notice = msg.Notice
		}
		return m, nil

	case TurnResultMsg:
		return m.handleTurnResult(msg)

	case TickMsg:
		m.spinnerIdx++
		if !m.running {
			return m, nil
		}
		return m, TickCmd(tickInterval)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	if m.running {
		b.WriteString(m.turnView())
		b.WriteString("\n\n")
		b.WriteString(IdleStyle.Render("  esc to stop · ctrl+c to quit"))
	} else if m.initial == "" {
		b.WriteString(PromptStyle.Render(m.input.View()))
	}
	b.WriteString("\n")
	b.WriteString(m.status.View(m.now()))
	b.WriteString("\n")
	return b.String()
}

// start resets the turn state and returns the commands running it.
func (m *ChatModel) start(message string) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.running = true
	m.cancel = cancel
	m.question = message
	m.steps = nil
	m.thinkingDone = false
	m.thinking = 0
	m.content = ""
	m.notice = ""
	m.input.Reset()
	m.input.Blur()
	m.status.Start(m.now())
	return tea.Batch(RunTurnCmd(ctx, m.gate, message, m.bridge), TickCmd(tickInterval))
}

func (m ChatModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEsc:
		if m.running && m.cancel != nil {
			m.cancel()
		}
		return m, nil

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		message := strings.TrimSpace(m.input.Value())
		if message == "" {
			return m, nil
		}
		cmd := m.start(message)
		return m, cmd
	}

	if m.running {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleTurnResult prints the finished turn above the prompt.
func (m ChatModel) handleTurnResult(msg TurnResultMsg) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.last = msg.Outcome
	if msg.Err != nil && m.notice == "" {
		m.notice = msg.Err.Error()
	}
	state := msg.Outcome.State
	if msg.Err != nil {
		state = stream.Failed
	}
	m.status.Finish(state, m.now())

	m.running = false
	transcript := m.turnView()

	printTurn := tea.Println(transcript + "\n")
	if m.initial != "" {
		m.quitting = true
		return m, tea.Sequence(printTurn, tea.Quit)
	}
	m.input.Focus()
	return m, tea.Batch(printTurn, textinput.Blink)
}

// turnView renders the current turn: question, steps, answer, and notice.
func (m ChatModel) turnView() string {
	var b strings.Builder
	b.WriteString(QuestionStyle.Render("› " + m.question))
	b.WriteString("\n")

	if m.thinkingDone {
		if len(m.steps) > 0 {
			b.WriteString(StepDetailStyle.Render(fmt.Sprintf("  researched %d steps in %s", len(m.steps), formatElapsed(m.thinking))))
			b.WriteString("\n")
		}
	} else {
		for i, step := range m.steps {
			b.WriteString(m.stepLine(step, m.running && i == len(m.steps)-1))
			b.WriteString("\n")
		}
		if m.running && len(m.steps) == 0 {
			frame := SpinnerFrames[m.spinnerIdx%len(SpinnerFrames)]
			b.WriteString(RunningStyle.Render("  " + frame + " thinking"))
			b.WriteString("\n")
		}
	}

	if m.content != "" {
		b.WriteString("\n")
		b.WriteString(m.content)
		b.WriteString("\n")
	}
	if m.notice != "" {
		notice := m.notice
		if m.width > 8 {
			notice = wordwrap.String(notice, m.width-6)
		}
		b.WriteString(NoticeStyle.Render(notice))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m ChatModel) stepLine(step stream.Step, active bool) string {
	mark := "✓"
	style := CompletedStyle
	if active {
		mark = SpinnerFrames[m.spinnerIdx%len(SpinnerFrames)]
		style = RunningStyle
	}
	line := style.Render("  "+mark+" ") + StepStyle.Render(step.Label)
	if step.Detail != "" {
		line += "  " + StepDetailStyle.Render(step.Detail)
	}
	return line
}

// Run starts an inline program for the chat model and blocks until the user
// quits or, with WithMessage, the single turn ends.
func Run(ctx context.Context, gate Submitter, opts ...ChatOption) (stream.Outcome, error) {
	bridge := NewBridge(nil)
	p := tea.NewProgram(NewChatModel(ctx, gate, bridge, opts...))
	bridge.Attach(p.Send)

	final, err := p.Run()
	if err != nil {
		return stream.Outcome{}, fmt.Errorf("chat ui: %w", err)
	}
	return final.(ChatModel).Last(), nil
}
