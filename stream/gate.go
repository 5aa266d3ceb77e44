// ABOUTME: Gate admits at most one active session and rejects blank messages before any connection.
// ABOUTME: Finished sessions are handed to an optional Recorder.

package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrEmptyMessage rejects messages that are blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSessionActive rejects a submission while another session runs.
	ErrSessionActive = errors.New("a session is already active")
)

// Gate serialises submissions onto a single Source.
type Gate struct {
	src      Source
	cfg      Config
	recorder Recorder

	mu     sync.Mutex
	active *Session
}

// NewGate returns a gate opening sessions on src. recorder may be nil.
func NewGate(src Source, cfg Config, recorder Recorder) *Gate {
	return &Gate{src: src, cfg: cfg.withDefaults(), recorder: recorder}
}

// Submit runs one session for message, blocking until it ends.
func (g *Gate) Submit(ctx context.Context, message string, display Display) (Outcome, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Outcome{}, ErrEmptyMessage
	}

	g.mu.Lock()
	if g.active != nil {
		g.mu.Unlock()
		return Outcome{}, ErrSessionActive
	}
	s := NewSession(message, display, g.cfg)
	g.active = s
	g.mu.Unlock()

	out := s.Run(ctx, g.src)

	g.mu.Lock()
	g.active = nil
	g.mu.Unlock()

	if g.recorder != nil {
		if err := g.recorder.Record(context.WithoutCancel(ctx), out); err != nil {
			g.cfg.Logger.Printf("component=stream action=record_failed session=%s err=%v", out.SessionID, err)
		}
	}
	return out, nil
}

// Active returns the running session, or nil.
func (g *Gate) Active() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
