// ABOUTME: Tests for the SQLite turn history.
// ABOUTME: Covers record/get round trips, recency ordering, limits, and missing ids.
package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/2389-research/cardstream/store"
	"github.com/2389-research/cardstream/stream"
)

func openTemp(t *testing.T) *store.TurnStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeOutcome(message string, started time.Time) stream.Outcome {
	return stream.Outcome{
		SessionID: "session-" + message,
		Message:   message,
		State:     stream.Completed,
		Text:      "## Answer\n" + message,
		ToolCalls: []stream.ToolCall{{Name: "get_stock_info", Args: map[string]any{"ticker": "AAPL"}}},
		Thinking:  1500 * time.Millisecond,
		StartedAt: started,
		EndedAt:   started.Add(3 * time.Second),
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, msg := range []string{"first", "second", "third"} {
		if err := s.Record(ctx, makeOutcome(msg, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record %s: %v", msg, err)
		}
	}

	turns, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Message != "third" || turns[1].Message != "second" {
		t.Errorf("order = %q, %q; want third, second", turns[0].Message, turns[1].Message)
	}

	got := turns[0]
	if got.State != "completed" {
		t.Errorf("state = %q, want completed", got.State)
	}
	if got.ThinkingMS != 1500 {
		t.Errorf("thinking_ms = %d, want 1500", got.ThinkingMS)
	}
	if !got.StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("started_at = %v", got.StartedAt)
	}
	if len(got.ToolCalls) != 1 || got.ToolCalls[0].Args["ticker"] != "AAPL" {
		t.Errorf("tool calls = %+v", got.ToolCalls)
	}

	all, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent default: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 turns with default limit, got %d", len(all))
	}
}

func TestGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	failed := stream.Outcome{
		SessionID: "s1",
		Message:   "hi",
		State:     stream.TimedOut,
		Notice:    stream.DefaultNotices.Timeout,
		StartedAt: time.Now(),
		EndedAt:   time.Now(),
	}
	if err := s.Record(ctx, failed); err != nil {
		t.Fatalf("Record: %v", err)
	}
	turns, err := s.Recent(ctx, 1)
	if err != nil || len(turns) != 1 {
		t.Fatalf("Recent: %v (%d turns)", err, len(turns))
	}

	got, err := s.Get(ctx, turns[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != "timed_out" || got.Notice != stream.DefaultNotices.Timeout {
		t.Errorf("got state=%q notice=%q", got.State, got.Notice)
	}
	if got.ToolCalls == nil || len(got.ToolCalls) != 0 {
		t.Errorf("expected empty tool call list, got %#v", got.ToolCalls)
	}

	if _, err := s.Get(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Record(context.Background(), makeOutcome("kept", time.Now())); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = s.Close()

	s, err = store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()
	turns, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 1 || turns[0].Message != "kept" {
		t.Errorf("turns after reopen = %+v", turns)
	}
}
