package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/syncpad/internal/model"
)

// NoteStore provides CRUD over the notes collection plus the
// reconciliation operations the sync engine needs.
type NoteStore struct {
	db *DB
}

const noteColumns = `id, remote_id, title, content, created_at, updated_at, synced, last_sync_at`

// Create inserts a new local-only note and returns its local id.
func (s *NoteStore) Create(ctx context.Context, note *model.Note) (int64, error) {
	if err := note.Validate(); err != nil {
		return 0, fmt.Errorf("invalid note: %w", err)
	}

	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = now
	}

	query := `
	INSERT INTO notes (remote_id, title, content, created_at, updated_at, synced, last_sync_at)
	VALUES ('', ?, ?, ?, ?, 0, NULL)
	`

	res, err := s.db.conn.ExecContext(ctx, query,
		note.Title,
		note.Content,
		formatTime(note.CreatedAt),
		formatTime(note.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read note id: %w", err)
	}

	note.LocalID = id
	note.RemoteID = ""
	note.Synced = false
	return id, nil
}

// GetAll returns every note ordered by creation time descending.
func (s *NoteStore) GetAll(ctx context.Context) ([]*model.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes ORDER BY created_at DESC, id DESC`

	rows, err := s.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// GetByID retrieves a single note. Returns ErrNotFound if absent.
func (s *NoteStore) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = ?`

	row := s.db.conn.QueryRowContext(ctx, query, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %d: %w", id, err)
	}
	return note, nil
}

// NotePatch describes a partial update; nil fields are left unchanged.
type NotePatch struct {
	Title   *string
	Content *string
}

// Update applies a partial payload mutation, refreshing updated_at and
// clearing the synced flag.
func (s *NoteStore) Update(ctx context.Context, id int64, patch NotePatch) error {
	var sets []string
	var args []interface{}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?", "synced = 0")
	args = append(args, formatTime(time.Now()), id)

	query := `UPDATE notes SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	res, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update note %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a note along with its derived embeddings (foreign key
// cascade). Idempotent. Deletion is local only; the remote counterpart,
// if any, is left in place.
func (s *NoteStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, err)
	}
	return nil
}

// Materialize inserts a note pulled from the remote side, linked and
// synced from birth.
func (s *NoteStore) Materialize(ctx context.Context, note *model.Note) (int64, error) {
	if note.RemoteID == "" {
		return 0, fmt.Errorf("cannot materialize note without remote id")
	}

	query := `
	INSERT INTO notes (remote_id, title, content, created_at, updated_at, synced, last_sync_at)
	VALUES (?, ?, ?, ?, ?, 1, ?)
	`

	res, err := s.db.conn.ExecContext(ctx, query,
		note.RemoteID,
		note.Title,
		note.Content,
		formatTime(note.CreatedAt),
		formatTime(note.UpdatedAt),
		timePtrToNullString(note.LastSyncAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to materialize note %s: %w", note.RemoteID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read note id: %w", err)
	}
	note.LocalID = id
	return id, nil
}

// Overwrite replaces a note's payload and timestamps with the remote copy
// and marks it synced.
func (s *NoteStore) Overwrite(ctx context.Context, note *model.Note) error {
	query := `
	UPDATE notes SET
		title = ?, content = ?, created_at = ?, updated_at = ?,
		synced = 1, last_sync_at = ?
	WHERE id = ?
	`

	res, err := s.db.conn.ExecContext(ctx, query,
		note.Title,
		note.Content,
		formatTime(note.CreatedAt),
		formatTime(note.UpdatedAt),
		timePtrToNullString(note.LastSyncAt),
		note.LocalID,
	)
	if err != nil {
		return fmt.Errorf("failed to overwrite note %d: %w", note.LocalID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("note %d: %w", note.LocalID, ErrNotFound)
	}
	return nil
}

// MarkSynced records a successful reconciliation for a note.
func (s *NoteStore) MarkSynced(ctx context.Context, id int64, remoteID string, at time.Time) error {
	query := `UPDATE notes SET remote_id = ?, synced = 1, last_sync_at = ? WHERE id = ?`
	res, err := s.db.conn.ExecContext(ctx, query, remoteID, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark note %d synced: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns the total number of notes.
func (s *NoteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

// PutEmbedding stores a derived embedding vector for a note. Embeddings
// are dependent records: deleting the note removes them.
func (s *NoteStore) PutEmbedding(ctx context.Context, noteID int64, embModel string, vector []float64) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal vector: %w", err)
	}

	query := `INSERT INTO note_embeddings (note_id, model, vector, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.conn.ExecContext(ctx, query, noteID, embModel, string(data), formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to store embedding for note %d: %w", noteID, err)
	}
	return nil
}

// EmbeddingCount returns the number of stored embeddings for a note.
func (s *NoteStore) EmbeddingCount(ctx context.Context, noteID int64) (int, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM note_embeddings WHERE note_id = ?", noteID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// scanNote reads one note row.
func scanNote(row rowScanner) (*model.Note, error) {
	var note model.Note
	var createdAt, updatedAt string
	var lastSyncAt sql.NullString

	err := row.Scan(
		&note.LocalID,
		&note.RemoteID,
		&note.Title,
		&note.Content,
		&createdAt,
		&updatedAt,
		&note.Synced,
		&lastSyncAt,
	)
	if err != nil {
		return nil, err
	}

	note.CreatedAt = parseTime(createdAt)
	note.UpdatedAt = parseTime(updatedAt)
	note.LastSyncAt = nullStringToTimePtr(lastSyncAt)

	return &note, nil
}
