// Package history records build and release runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Kind distinguishes entry types.
type Kind string

const (
	KindBuild   Kind = "build"
	KindRelease Kind = "release"
)

// Entry is one recorded run.
type Entry struct {
	ID        int64         `json:"id"`
	RunID     string        `json:"run_id"`
	Kind      Kind          `json:"kind"`
	Mode      string        `json:"mode,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"`
	Artifact  string        `json:"artifact,omitempty"`
	Detail    string        `json:"detail,omitempty"` // tag for releases, error text for failures
}

// ListOptions filters List.
type ListOptions struct {
	Limit int  // 0 means no limit
	Kind  Kind // empty means all kinds
}

// Store persists history entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating when needed) the database at path. Use ":memory:"
// for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		mode TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		artifact TEXT,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends an entry.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, kind, mode, started_at, duration_ms, outcome, artifact, detail) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.RunID, string(e.Kind), e.Mode, e.StartedAt.UnixMilli(), e.Duration.Milliseconds(), e.Outcome, e.Artifact, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, run_id, kind, mode, started_at, duration_ms, outcome, artifact, detail FROM runs"
	var args []any
	if opts.Kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(opts.Kind))
	}
	query += " ORDER BY started_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e                   Entry
			kind                string
			mode, art, detail   sql.NullString
			startedMS, duration int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &kind, &mode, &startedMS, &duration, &e.Outcome, &art, &detail); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Kind = Kind(kind)
		e.Mode = mode.String
		e.Artifact = art.String
		e.Detail = detail.String
		e.StartedAt = time.UnixMilli(startedMS)
		e.Duration = time.Duration(duration) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
