// Package audit persists one record per quality-gate invocation in a
// SQLite event store. The review tooling queries it for titles whose latest
// verdict failed or scored low.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS gate_events (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at        DATETIME NOT NULL,
	title             TEXT NOT NULL,
	appropriate       INTEGER NOT NULL DEFAULT 0,
	technically_sound INTEGER NOT NULL DEFAULT 0,
	score             INTEGER NOT NULL DEFAULT 0,
	passes            INTEGER NOT NULL DEFAULT 0,
	reason            TEXT NOT NULL DEFAULT '',
	gate_error        TEXT NOT NULL DEFAULT '',
	preview           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_gate_events_title ON gate_events(title);
CREATE INDEX IF NOT EXISTS idx_gate_events_created ON gate_events(created_at);
`

// previewLimit caps how much document text is stored with each event.
const previewLimit = 500

// Event is one recorded gate invocation.
type Event struct {
	ID               int64
	CreatedAt        time.Time
	Title            string
	Appropriate      bool
	TechnicallySound bool
	Score            int
	Passes           bool
	Reason           string
	GateError        string // empty on clean invocations
	Preview          string
}

// Store wraps a sql.DB with audit-specific operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite event store and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("audit: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record appends one event. The content preview is truncated to a fixed
// limit before storage.
func (s *Store) Record(ctx context.Context, ev Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if len(ev.Preview) > previewLimit {
		ev.Preview = ev.Preview[:previewLimit]
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO gate_events
			(created_at, title, appropriate, technically_sound, score, passes, reason, gate_error, preview)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.CreatedAt, ev.Title, ev.Appropriate, ev.TechnicallySound, ev.Score, ev.Passes, ev.Reason, ev.GateError, ev.Preview)
	if err != nil {
		return fmt.Errorf("audit: record: %w", err)
	}
	return nil
}

// Latest returns the most recent event for each distinct title.
func (s *Store) Latest(ctx context.Context) ([]Event, error) {
	return s.query(ctx, `
		SELECT id, created_at, title, appropriate, technically_sound, score, passes, reason, gate_error, preview
		FROM gate_events
		WHERE id IN (SELECT MAX(id) FROM gate_events GROUP BY title)
		ORDER BY title
	`)
}

// NeedsReview returns the latest event per title restricted to titles that
// failed or scored at or below threshold, lowest score first.
func (s *Store) NeedsReview(ctx context.Context, threshold int) ([]Event, error) {
	return s.query(ctx, `
		SELECT id, created_at, title, appropriate, technically_sound, score, passes, reason, gate_error, preview
		FROM gate_events
		WHERE id IN (SELECT MAX(id) FROM gate_events GROUP BY title)
		  AND (passes = 0 OR score <= ?)
		ORDER BY score ASC, title ASC
	`, threshold)
}

// CountForDay returns how many gate invocations were recorded on the given
// UTC day. Used by the preview server's status endpoint.
func (s *Store) CountForDay(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM gate_events WHERE created_at >= ? AND created_at < ?`,
		start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit: count for day: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.CreatedAt, &ev.Title, &ev.Appropriate, &ev.TechnicallySound,
			&ev.Score, &ev.Passes, &ev.Reason, &ev.GateError, &ev.Preview); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
