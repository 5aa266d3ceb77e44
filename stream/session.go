// ABOUTME: Session consumes one chat turn: it opens the event channel, drives the Display, and
// ABOUTME: guards the turn with a single idle watchdog timer that re-arms on every event.

package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/cardstream/render"
	"github.com/2389-research/cardstream/sse"
)

// Config carries the collaborators shared by every session.
type Config struct {
	IdleTimeout time.Duration
	Renderer    Renderer
	Steps       StepNamer
	Notices     Notices
	Logger      *log.Logger
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Renderer == nil {
		c.Renderer = RendererFunc(render.Markdown)
	}
	if c.Notices == (Notices{}) {
		c.Notices = DefaultNotices
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Session is a single chat turn. Run must be called at most once; State may
// be read from any goroutine.
type Session struct {
	id      string
	message string
	display Display
	cfg     Config

	state atomic.Int32

	buf          strings.Builder
	hasContent   bool
	thinkingDone bool
	toolCalls    []ToolCall
	notice       string
	startedAt    time.Time
	thinking     time.Duration
}

// NewSession prepares a session for message.
func NewSession(message string, display Display, cfg Config) *Session {
	return &Session{
		id:      uuid.NewString(),
		message: message,
		display: display,
		cfg:     cfg.withDefaults(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Run opens the channel through src and consumes it until a terminal state.
// The idle watchdog is armed before the channel opens, so a connection that
// never answers times out like a silent stream. Cancelling ctx ends the
// session as Failed without a notice.
func (s *Session) Run(ctx context.Context, src Source) Outcome {
	s.startedAt = s.cfg.Now()
	s.setState(Connecting)

	watchdog := time.NewTimer(s.cfg.IdleTimeout)
	defer watchdog.Stop()

	connCtx, cancelConn := context.WithCancel(ctx)
	defer cancelConn()

	conn, st, done := s.open(ctx, connCtx, cancelConn, src, watchdog)
	if done {
		return s.end(st)
	}
	defer conn.Close()

	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return s.end(Failed)

		case <-watchdog.C:
			s.cfg.Logger.Printf("component=stream action=timeout session=%s idle=%s", s.id, s.cfg.IdleTimeout)
			s.fail(s.cfg.Notices.Timeout)
			return s.end(TimedOut)

		case evt, ok := <-events:
			if !ok {
				if err := conn.Err(); err != nil && ctx.Err() == nil {
					s.cfg.Logger.Printf("component=stream action=transport_failed session=%s err=%v", s.id, err)
				}
				if ctx.Err() != nil {
					return s.end(Failed)
				}
				s.fail(s.cfg.Notices.Transport)
				return s.end(Failed)
			}
			if s.State() == Connecting {
				s.setState(Streaming)
			}
			switch evt.Type {
			case EventDone:
				s.complete()
				return s.end(Completed)
			case EventError:
				s.fail(s.channelNotice(evt.Data))
				return s.end(Failed)
			case EventToolCall:
				s.toolCall(evt)
			case EventMessage:
				s.content(evt.Data)
			}
			// Go 1.23 timers drop any stale expiry on Reset.
			watchdog.Reset(s.cfg.IdleTimeout)
		}
	}
}

type openResult struct {
	conn Conn
	err  error
}

// open waits for src to connect while honouring the watchdog and ctx. When
// done is true the session is over and st is its terminal state.
func (s *Session) open(ctx, connCtx context.Context, cancelConn context.CancelFunc, src Source, watchdog *time.Timer) (conn Conn, st State, done bool) {
	opened := make(chan openResult, 1)
	go func() {
		c, err := src.Open(connCtx, s.message)
		opened <- openResult{conn: c, err: err}
	}()

	abandon := func() {
		cancelConn()
		go func() {
			if r := <-opened; r.conn != nil {
				r.conn.Close()
			}
		}()
	}

	select {
	case <-ctx.Done():
		abandon()
		return nil, Failed, true

	case <-watchdog.C:
		abandon()
		s.cfg.Logger.Printf("component=stream action=open_timeout session=%s idle=%s", s.id, s.cfg.IdleTimeout)
		s.fail(s.cfg.Notices.Timeout)
		return nil, TimedOut, true

	case r := <-opened:
		if r.err != nil {
			if ctx.Err() != nil {
				return nil, Failed, true
			}
			s.cfg.Logger.Printf("component=stream action=open_failed session=%s err=%v", s.id, r.err)
			s.fail(s.cfg.Notices.Transport)
			return nil, Failed, true
		}
		return r.conn, Connecting, false
	}
}

func (s *Session) toolCall(evt sse.Event) {
	var call ToolCall
	if err := json.Unmarshal([]byte(evt.Data), &call); err != nil {
		s.cfg.Logger.Printf("component=stream action=bad_tool_call session=%s err=%v", s.id, err)
		return
	}
	s.toolCalls = append(s.toolCalls, call)
	step := Step{Label: call.Name}
	if s.cfg.Steps != nil {
		step.Label, step.Detail = s.cfg.Steps.Step(call.Name, call.Args)
	}
	s.display.AddStep(step)
}

func (s *Session) content(delta string) {
	if !s.hasContent {
		s.hasContent = true
		s.finishThinking()
	}
	s.buf.WriteString(delta)
	s.display.ShowContent(s.render(false), false)
}

func (s *Session) complete() {
	s.finishThinking()
	if s.buf.Len() > 0 {
		s.display.ShowContent(s.render(true), true)
	}
}

func (s *Session) finishThinking() {
	if s.thinkingDone {
		return
	}
	s.thinkingDone = true
	s.thinking = s.cfg.Now().Sub(s.startedAt)
	s.display.FinishThinking(s.thinking)
}

// fail shows notice unless content is already on screen.
func (s *Session) fail(notice string) {
	if s.hasContent {
		return
	}
	s.notice = notice
	s.display.ShowError(notice)
}

func (s *Session) channelNotice(data string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil || strings.TrimSpace(payload.Error) == "" {
		return s.cfg.Notices.Channel
	}
	return payload.Error
}

func (s *Session) render(final bool) string {
	return s.cfg.Renderer.Render(s.buf.String(), final)
}

// end moves to the terminal state and hands back the outcome. The answer
// buffer is released.
func (s *Session) end(st State) Outcome {
	s.setState(st)
	out := Outcome{
		SessionID: s.id,
		Message:   s.message,
		State:     st,
		Text:      s.buf.String(),
		ToolCalls: s.toolCalls,
		Thinking:  s.thinking,
		Notice:    s.notice,
		StartedAt: s.startedAt,
		EndedAt:   s.cfg.Now(),
	}
	s.buf.Reset()
	return out
}
