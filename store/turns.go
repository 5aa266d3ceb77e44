// ABOUTME: SQLite-backed history of finished chat turns, one row per stream session.
// ABOUTME: Implements stream.Recorder and serves recent-turn and by-id lookups for the web surface.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/2389-research/cardstream/stream"
)

// ErrNotFound is returned by Get for unknown turn ids.
var ErrNotFound = errors.New("turn not found")

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 20

// Turn is a stored session outcome.
type Turn struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	Message    string            `json:"message"`
	State      string            `json:"state"`
	Text       string            `json:"text"`
	Notice     string            `json:"notice,omitempty"`
	ToolCalls  []stream.ToolCall `json:"tool_calls"`
	ThinkingMS int64             `json:"thinking_ms"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    time.Time         `json:"ended_at"`
}

// TurnStore persists turns in a SQLite database.
type TurnStore struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*TurnStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			message TEXT NOT NULL,
			state TEXT NOT NULL,
			text TEXT NOT NULL,
			notice TEXT NOT NULL,
			tool_calls TEXT NOT NULL,
			thinking_ms INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS turns_started_at ON turns (started_at);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &TurnStore{db: db}, nil
}

// Close closes the database.
func (s *TurnStore) Close() error {
	return s.db.Close()
}

// Record stores a finished session.
func (s *TurnStore) Record(ctx context.Context, o stream.Outcome) error {
	calls := o.ToolCalls
	if calls == nil {
		calls = []stream.ToolCall{}
	}
	callsJSON, err := json.Marshal(calls)
	if err != nil {
		return fmt.Errorf("encode tool calls: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, message, state, text, notice, tool_calls, thinking_ms, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ulid.MustNew(ulid.Now(), rand.Reader).String(),
		o.SessionID,
		o.Message,
		o.State.String(),
		o.Text,
		o.Notice,
		string(callsJSON),
		o.Thinking.Milliseconds(),
		o.StartedAt.UnixMilli(),
		o.EndedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

const turnColumns = `id, session_id, message, state, text, notice, tool_calls, thinking_ms, started_at, ended_at`

// Recent returns up to limit turns, newest first.
func (s *TurnStore) Recent(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+turnColumns+` FROM turns ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns := []Turn{}
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Get returns the turn with the given id.
func (s *TurnStore) Get(ctx context.Context, id string) (Turn, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+turnColumns+` FROM turns WHERE id = ?`, id)
	t, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Turn{}, ErrNotFound
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(sc scanner) (Turn, error) {
	var (
		t         Turn
		callsJSON string
		started   int64
		ended     int64
	)
	if err := sc.Scan(&t.ID, &t.SessionID, &t.Message, &t.State, &t.Text, &t.Notice,
		&callsJSON, &t.ThinkingMS, &started, &ended); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Turn{}, err
		}
		return Turn{}, fmt.Errorf("scan turn row: %w", err)
	}
	if err := json.Unmarshal([]byte(callsJSON), &t.ToolCalls); err != nil {
		return Turn{}, fmt.Errorf("decode tool calls for %s: %w", t.ID, err)
	}
	t.StartedAt = time.UnixMilli(started).UTC()
	t.EndedAt = time.UnixMilli(ended).UTC()
	return t, nil
}
