// Package journal keeps a log of the operations applied to the week stores.
//
// The stores themselves carry no history, so the journal is the only place
// to find out which operation touched which class, and which multi-store
// operation stopped partway. Entries live in an embedded SQLite database
// opened in WAL mode.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Operation outcomes.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Entry is one journal record.
type Entry struct {
	ID     int64     `json:"id" yaml:"id"`
	Time   time.Time `json:"time" yaml:"time"`
	Week   string    `json:"week" yaml:"week"`
	Op     string    `json:"op" yaml:"op"`
	Detail string    `json:"detail" yaml:"detail"`
	Status string    `json:"status" yaml:"status"`
	Error  string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Recorder accepts journal entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// DB is the journal database.
type DB struct {
	conn *sql.DB
	path string
}

var _ Recorder = (*DB)(nil)

// Open opens or creates the journal at path and initializes its schema.
//
// The caller must call Close when done.
func Open(path string) (*DB, error) {
	return OpenContext(context.Background(), path)
}

// OpenContext is Open with context support.
func OpenContext(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at TEXT NOT NULL,
		week TEXT NOT NULL,
		op TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_entries_week ON entries(week);
	CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return nil
}

// Path returns the database location.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint journal WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	db.conn = nil
	return nil
}

// Record implements Recorder. A zero Time is replaced by the current time
// and an empty Status by StatusOK.
func (db *DB) Record(ctx context.Context, e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}
	query := `INSERT INTO entries (at, week, op, detail, status, error) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query,
		e.Time.UTC().Format(time.RFC3339Nano), e.Week, e.Op, e.Detail, e.Status, e.Error)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.Op, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. An empty week returns
// entries of every week.
func (db *DB) Recent(week string, limit int) ([]Entry, error) {
	return db.RecentContext(context.Background(), week, limit)
}

// RecentContext is Recent with context support.
func (db *DB) RecentContext(ctx context.Context, week string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, at, week, op, detail, status, error
	FROM entries
	WHERE ? = '' OR week = ?
	ORDER BY id DESC
	LIMIT ?
	`
	rows, err := db.conn.QueryContext(ctx, query, week, week, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Week, &e.Op, &e.Detail, &e.Status, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Time, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("invalid time in journal entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries with status, or all entries when
// status is empty.
func (db *DB) Count(status string) (int, error) {
	return db.CountContext(context.Background(), status)
}

// CountContext is Count with context support.
func (db *DB) CountContext(ctx context.Context, status string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE ? = '' OR status = ?`, status, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return n, nil
}
