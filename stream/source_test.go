// ABOUTME: Tests for HTTPSource against an httptest SSE server and for the single-session Gate.
// ABOUTME: The gate tests use a blocking source to hold a session open while a second submit arrives.

package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/cardstream/sse"
)

func sseServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSourceStreamsEvents(t *testing.T) {
	requests := make(chan *http.Request, 1)
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event: tool_call\ndata: {\"name\":\"think\",\"args\":{}}\n\n")
		fmt.Fprint(w, "event: message\ndata: line one\ndata: line two\n\n")
		fmt.Fprint(w, "event: done\n\n")
	})

	src := &HTTPSource{BaseURL: srv.URL + "/"}
	d := &recordingDisplay{}
	out := NewSession("price of AAPL & MSFT?", d, testConfig(time.Second)).Run(context.Background(), src)

	r := <-requests
	assert.Equal(t, DefaultStreamPath, r.URL.Path)
	assert.Equal(t, "price of AAPL & MSFT?", r.URL.Query().Get("message"))
	assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
	assert.Equal(t, Completed, out.State)
	assert.Equal(t, "line one\nline two", out.Text)
	assert.Equal(t, []string{
		"step label:think|",
		"thinking-done",
		"content final=false line one\nline two",
		"content final=true [line one\nline two]",
	}, d.Calls())
}

func TestHTTPSourceRejectsErrorStatus(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusConflict)
	})

	_, err := (&HTTPSource{BaseURL: srv.URL}).Open(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestHTTPSourceEOFWithoutTerminalEvent(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: tool_call\ndata: {\"name\":\"think\"}\n\n")
	})

	d := &recordingDisplay{}
	out := NewSession("hi", d, testConfig(time.Second)).Run(context.Background(), &HTTPSource{BaseURL: srv.URL})

	assert.Equal(t, Failed, out.State)
	assert.Equal(t, DefaultNotices.Transport, out.Notice)
}

func TestHTTPSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	d := &recordingDisplay{}
	out := NewSession("hi", d, testConfig(time.Second)).Run(context.Background(), &HTTPSource{BaseURL: base})

	assert.Equal(t, Failed, out.State)
	assert.Equal(t, []string{"error " + DefaultNotices.Transport}, d.Calls())
}

// stalledServer accepts requests but never writes response headers.
func stalledServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })
	return srv
}

func TestHTTPSourceTimesOutWithoutHeaders(t *testing.T) {
	srv := stalledServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d := &recordingDisplay{}
	start := time.Now()
	out := NewSession("hi", d, testConfig(100*time.Millisecond)).Run(ctx, &HTTPSource{BaseURL: srv.URL})

	assert.Equal(t, TimedOut, out.State)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"error " + DefaultNotices.Timeout}, d.Calls())
	assert.Equal(t, DefaultNotices.Timeout, out.Notice)
}

func TestHTTPSourceCancelWhileConnecting(t *testing.T) {
	srv := stalledServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	d := &recordingDisplay{}
	out := NewSession("hi", d, testConfig(time.Second)).Run(ctx, &HTTPSource{BaseURL: srv.URL})

	assert.Equal(t, Failed, out.State)
	assert.Empty(t, d.Calls())
}

type memoryRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *memoryRecorder) Record(ctx context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func TestGateRejectsEmptyMessage(t *testing.T) {
	src := &scriptSource{}
	g := NewGate(src, testConfig(time.Second), nil)

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := g.Submit(context.Background(), msg, &recordingDisplay{})
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Empty(t, src.opened, "no connection may be opened for a blank message")
}

func TestGateAllowsOneActiveSession(t *testing.T) {
	src := &scriptSource{hold: true}
	rec := &memoryRecorder{}
	g := NewGate(src, testConfig(5*time.Second), rec)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan Outcome, 1)
	go func() {
		out, err := g.Submit(ctx, "  first  ", &recordingDisplay{})
		assert.NoError(t, err)
		first <- out
	}()

	require.Eventually(t, func() bool { return g.Active() != nil }, time.Second, 5*time.Millisecond)

	_, err := g.Submit(context.Background(), "second", &recordingDisplay{})
	assert.ErrorIs(t, err, ErrSessionActive)

	cancel()
	out := <-first
	assert.Equal(t, "first", out.Message)
	assert.Equal(t, Failed, out.State)
	assert.Nil(t, g.Active())

	rec.mu.Lock()
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, out.SessionID, rec.outcomes[0].SessionID)
	rec.mu.Unlock()

	done := &scriptSource{events: []sse.Event{ev(EventDone, "")}}
	g2 := NewGate(done, testConfig(time.Second), rec)
	out, err = g2.Submit(context.Background(), "third", &recordingDisplay{})
	require.NoError(t, err)
	assert.Equal(t, Completed, out.State)
}
