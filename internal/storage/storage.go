// Package storage persists classified events to SQLite so a run can be
// inspected after the fact with `ralph activity`. The store is an
// optional observer: the supervision loop runs fine with it disabled,
// and store failures never fail the loop.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS agent_events (
    id         TEXT PRIMARY KEY,
    run_id     TEXT NOT NULL,
    iteration  INTEGER NOT NULL,
    type       TEXT NOT NULL,
    health     TEXT NOT NULL DEFAULT 'OK',
    message    TEXT NOT NULL,
    est_tokens INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agent_events_run ON agent_events(run_id);
CREATE INDEX IF NOT EXISTS idx_agent_events_created ON agent_events(created_at);
`

// Record is one persisted event row.
type Record struct {
	ID        string
	RunID     string
	Iteration int
	Type      string
	Health    string
	Message   string
	EstTokens int
	CreatedAt time.Time
}

// Filter narrows Recent queries.
type Filter struct {
	RunID string
	Type  string
	Limit int
}

// Store wraps the SQLite database holding agent events.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the event store at path. Use
// ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping event store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize event store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append stores one record. A zero ID or timestamp is filled in.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_events (id, run_id, iteration, type, health, message, est_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Iteration, rec.Type, rec.Health, rec.Message, rec.EstTokens, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store agent event (type=%s): %w", rec.Type, err)
	}
	return nil
}

// Recent returns the newest records matching the filter, most recent
// first.
func (s *Store) Recent(ctx context.Context, filter Filter) ([]*Record, error) {
	query := `
		SELECT id, run_id, iteration, type, health, message, est_tokens, created_at
		FROM agent_events
		WHERE 1=1`
	args := []interface{}{}

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query agent events: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Iteration, &rec.Type, &rec.Health, &rec.Message, &rec.EstTokens, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent event: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
