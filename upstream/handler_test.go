// ABOUTME: Tests for the producer HTTP routes using httptest and the sse parser to read streams back.
// ABOUTME: Also exercises the replay producer end to end against the stream consumer.

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/cardstream/sse"
	"github.com/2389-research/cardstream/stream"
	"github.com/2389-research/cardstream/tools"
)

// funcProducer adapts a function to Producer.
type funcProducer func(ctx context.Context, message string, emit Emitter) error

func (f funcProducer) Name() string { return "func" }
func (f funcProducer) Produce(ctx context.Context, message string, emit Emitter) error {
	return f(ctx, message, emit)
}

func readEvents(t *testing.T, body io.Reader) []sse.Event {
	t.Helper()
	p := sse.NewParser(body)
	var out []sse.Event
	for {
		evt, err := p.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, evt)
	}
}

func TestStreamEmitsToolCallsMessagesAndDone(t *testing.T) {
	p := funcProducer(func(ctx context.Context, message string, emit Emitter) error {
		require.NoError(t, emit.ToolCall("get_stock_info", map[string]any{"ticker": "AAPL"}))
		require.NoError(t, emit.ToolCall("think", nil))
		require.NoError(t, emit.Message("echo: "+message))
		require.NoError(t, emit.Message("\nline two"))
		require.NoError(t, emit.Message(""))
		return nil
	})
	srv := httptest.NewServer(Handler(p, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chat/stream?message=" + "hello%20there")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	events := readEvents(t, resp.Body)
	require.Len(t, events, 5)
	assert.Equal(t, sse.Event{Type: "tool_call", Data: `{"name":"get_stock_info","args":{"ticker":"AAPL"}}`}, events[0])
	assert.Equal(t, sse.Event{Type: "tool_call", Data: `{"name":"think","args":{}}`}, events[1])
	assert.Equal(t, sse.Event{Type: "message", Data: "echo: hello there"}, events[2])
	assert.Equal(t, sse.Event{Type: "message", Data: "\nline two"}, events[3])
	assert.Equal(t, sse.Event{Type: "done", Data: "[DONE]"}, events[4])
}

func TestStreamRequiresMessage(t *testing.T) {
	srv := httptest.NewServer(Handler(funcProducer(nil), nil))
	defer srv.Close()

	for _, q := range []string{"", "?message=", "?message=%20%20"} {
		resp, err := http.Get(srv.URL + "/api/chat/stream" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestStreamReportsProducerError(t *testing.T) {
	p := funcProducer(func(ctx context.Context, message string, emit Emitter) error {
		return errors.New(`model "x" unavailable`)
	})
	srv := httptest.NewServer(Handler(p, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chat/stream?message=hi")
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readEvents(t, resp.Body)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(events[0].Data), &payload))
	assert.Equal(t, `model "x" unavailable`, payload["error"])
}

func TestStreamSendsKeepAlive(t *testing.T) {
	p := funcProducer(func(ctx context.Context, message string, emit Emitter) error {
		select {
		case <-time.After(120 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
		return emit.Message("late")
	})
	srv := httptest.NewServer(Handler(p, nil, WithKeepAlive(20*time.Millisecond)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chat/stream?message=hi")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), ": keep-alive\n\n")
	assert.True(t, strings.HasSuffix(string(raw), "event: done\ndata: [DONE]\n\n"), string(raw))
}

func TestStreamStopsProducerOnDisconnect(t *testing.T) {
	stopped := make(chan struct{})
	p := funcProducer(func(ctx context.Context, message string, emit Emitter) error {
		_ = emit.Message("first")
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})
	srv := httptest.NewServer(Handler(p, nil))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/chat/stream?message=hi", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	evt, err := sse.NewParser(resp.Body).Next()
	require.NoError(t, err)
	assert.Equal(t, "first", evt.Data)

	cancel()
	resp.Body.Close()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("producer was not cancelled")
	}
}

func TestChatReturnsWholeAnswer(t *testing.T) {
	p := funcProducer(func(ctx context.Context, message string, emit Emitter) error {
		_ = emit.ToolCall("think", nil)
		_ = emit.Message("Hello, ")
		return emit.Message(message)
	})
	srv := httptest.NewServer(Handler(p, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":" Ada "}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Hello, Ada", out["response"])
}

func TestChatErrors(t *testing.T) {
	failing := funcProducer(func(ctx context.Context, message string, emit Emitter) error {
		return errors.New("backend down")
	})
	srv := httptest.NewServer(Handler(failing, nil))
	defer srv.Close()

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"invalid json", `{`, http.StatusBadRequest, "invalid JSON body"},
		{"empty message", `{"message":"  "}`, http.StatusBadRequest, ErrNoMessage.Error()},
		{"producer failure", `{"message":"hi"}`, http.StatusInternalServerError, "backend down"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
			var out map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tc.errMsg, out["error"])
		})
	}
}

func TestHealthAndTools(t *testing.T) {
	srv := httptest.NewServer(Handler(funcProducer(nil), tools.Default()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "func", health["producer"])
	assert.Equal(t, float64(8), health["tools_count"])

	resp, err = http.Get(srv.URL + "/api/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 8)
	assert.Equal(t, "get_stock_info", list[0]["name"])
	assert.NotEmpty(t, list[0]["description"])
	assert.Contains(t, list[0], "args_schema")
}

type collectDisplay struct {
	steps   []stream.Step
	content []string
	errors  []string
}

func (d *collectDisplay) AddStep(s stream.Step)             { d.steps = append(d.steps, s) }
func (d *collectDisplay) FinishThinking(time.Duration)      {}
func (d *collectDisplay) ShowContent(markup string, _ bool) { d.content = append(d.content, markup) }
func (d *collectDisplay) ShowError(notice string)           { d.errors = append(d.errors, notice) }

func TestReplayDemoThroughStreamConsumer(t *testing.T) {
	p, err := LoadReplay("", 1000)
	require.NoError(t, err)
	srv := httptest.NewServer(Handler(p, nil))
	defer srv.Close()

	catalog := tools.Default()
	d := &collectDisplay{}
	s := stream.NewSession("How is Apple doing?", d, stream.Config{IdleTimeout: 5 * time.Second, Steps: catalog})
	out := s.Run(context.Background(), &stream.HTTPSource{BaseURL: srv.URL})

	require.Equal(t, stream.Completed, out.State)
	require.Len(t, d.steps, 3)
	assert.Equal(t, stream.Step{Label: "Looking up stock info", Detail: "Ticker: AAPL"}, d.steps[0])
	assert.Equal(t, stream.Step{Label: "Searching financial news", Detail: "Search: Apple earnings"}, d.steps[2])
	assert.Empty(t, d.errors)
	assert.Greater(t, len(d.content), 2, "message chunks arrive as separate deltas")
	assert.Contains(t, out.Text, "Question asked: How is Apple doing?")
	assert.True(t, strings.HasPrefix(out.Text, "# AAPL snapshot"))
}
