// Package store provides the embedded SQLite local store for tasks and
// notes.
//
// The database runs in embedded mode with WAL for concurrent reads. Each
// CRUD call is atomic; cross-call sequences are not, which is why the sync
// engine takes its own snapshots and tolerates interleaved UI writes.
//
// Timestamps are stored as RFC 3339 text. The synced flag and
// last_sync_at column are maintained only by the reconciliation methods
// (Materialize, Overwrite, MarkSynced); ordinary Update calls clear
// synced and refresh updated_at.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// timeLayout is the storage format for timestamps. Nanosecond precision
// matters: last-write-wins compares updated_at values that may be written
// within the same second.
const timeLayout = time.RFC3339Nano

// DB wraps the SQLite connection shared by the per-collection stores.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// If the database doesn't exist it is created; call InitSchema before
// using the collection stores. The caller must Close when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	// WAL for concurrent reads during sync writes
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Needed for the derived-record cascade on delete
	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tasks, notes and derived-record tables along with
// their indexes. Idempotent - safe to call multiple times.
func (db *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		due_date TEXT NOT NULL DEFAULT '',
		due_time TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',  -- JSON array
		done INTEGER NOT NULL DEFAULT 0,
		usage_count INTEGER NOT NULL DEFAULT 0,
		recurrence TEXT NOT NULL DEFAULT 'none',
		repeat_days INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		last_sync_at TEXT
	);

	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		last_sync_at TEXT
	);

	-- Derived records, removed with their note via cascade
	CREATE TABLE IF NOT EXISTS note_embeddings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id INTEGER NOT NULL,
		model TEXT NOT NULL,
		vector TEXT NOT NULL,  -- JSON array
		created_at TEXT NOT NULL,
		FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
	);

	-- At most one local record per remote id
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_remote_id
	    ON tasks(remote_id) WHERE remote_id != '';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_notes_remote_id
	    ON notes(remote_id) WHERE remote_id != '';

	CREATE INDEX IF NOT EXISTS idx_tasks_synced ON tasks(synced);
	CREATE INDEX IF NOT EXISTS idx_notes_synced ON notes(synced);
	CREATE INDEX IF NOT EXISTS idx_embeddings_note ON note_embeddings(note_id);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Tasks returns the task collection store.
func (db *DB) Tasks() *TaskStore {
	return &TaskStore{db: db}
}

// Notes returns the note collection store.
func (db *DB) Notes() *NoteStore {
	return &NoteStore{db: db}
}

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp, tolerating second precision.
func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// timePtrToNullString converts an optional timestamp for storage.
func timePtrToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// nullStringToTimePtr reads an optional stored timestamp.
func nullStringToTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// marshalTags serializes a tag list, never null.
func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(data), nil
}

// unmarshalTags deserializes a stored tag list.
func unmarshalTags(s string) ([]string, error) {
	if s == "" || s == "null" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	return tags, nil
}
