package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/syncpad/internal/model"
)

// TaskStore provides CRUD over the tasks collection plus the
// reconciliation operations the sync engine needs.
type TaskStore struct {
	db *DB
}

const taskColumns = `id, remote_id, title, due_date, due_time, tags, done,
	usage_count, recurrence, repeat_days, created_at, updated_at, synced, last_sync_at`

// Create inserts a new local-only task and returns its local id.
//
// Zero timestamps are filled with the current time. The task starts
// unlinked (no remote id) and unsynced.
func (s *TaskStore) Create(ctx context.Context, task *model.Task) (int64, error) {
	if task.Recurrence == "" {
		task.Recurrence = model.RecurNone
	}
	if err := task.Validate(); err != nil {
		return 0, fmt.Errorf("invalid task: %w", err)
	}

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}

	tagsJSON, err := marshalTags(task.Tags)
	if err != nil {
		return 0, err
	}

	query := `
	INSERT INTO tasks (
		remote_id, title, due_date, due_time, tags, done,
		usage_count, recurrence, repeat_days,
		created_at, updated_at, synced, last_sync_at
	) VALUES ('', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)
	`

	res, err := s.db.conn.ExecContext(ctx, query,
		task.Title,
		task.DueDate,
		task.DueTime,
		tagsJSON,
		task.Done,
		task.UsageCount,
		string(task.Recurrence),
		task.RepeatDays,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read task id: %w", err)
	}

	task.LocalID = id
	task.RemoteID = ""
	task.Synced = false
	return id, nil
}

// GetAll returns every task ordered by creation time descending.
func (s *TaskStore) GetAll(ctx context.Context) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC, id DESC`

	rows, err := s.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// GetByID retrieves a single task. Returns ErrNotFound if absent.
func (s *TaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	row := s.db.conn.QueryRowContext(ctx, query, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return task, nil
}

// TaskPatch describes a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title      *string
	DueDate    *string
	DueTime    *string
	Tags       *[]string
	Done       *bool
	UsageCount *int
	Recurrence *model.Recurrence
	RepeatDays *int
}

// Update applies a partial payload mutation. The mutation refreshes
// updated_at and clears the synced flag; a future reconciliation pass
// will push the change.
func (s *TaskStore) Update(ctx context.Context, id int64, patch TaskPatch) error {
	var sets []string
	var args []interface{}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, *patch.DueDate)
	}
	if patch.DueTime != nil {
		sets = append(sets, "due_time = ?")
		args = append(args, *patch.DueTime)
	}
	if patch.Tags != nil {
		tagsJSON, err := marshalTags(*patch.Tags)
		if err != nil {
			return err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tagsJSON)
	}
	if patch.Done != nil {
		sets = append(sets, "done = ?")
		args = append(args, *patch.Done)
	}
	if patch.UsageCount != nil {
		sets = append(sets, "usage_count = ?")
		args = append(args, *patch.UsageCount)
	}
	if patch.Recurrence != nil {
		if !patch.Recurrence.Valid() {
			return fmt.Errorf("unknown recurrence %q", *patch.Recurrence)
		}
		sets = append(sets, "recurrence = ?")
		args = append(args, string(*patch.Recurrence))
	}
	if patch.RepeatDays != nil {
		sets = append(sets, "repeat_days = ?")
		args = append(args, *patch.RepeatDays)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?", "synced = 0")
	args = append(args, formatTime(time.Now()), id)

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	res, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a task. Idempotent: deleting a missing id is not an
// error. Deletion is local only; the remote counterpart, if any, is left
// in place.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	return nil
}

// Materialize inserts a task pulled from the remote side. The record is
// linked and synced from birth; timestamps come from the remote copy.
func (s *TaskStore) Materialize(ctx context.Context, task *model.Task) (int64, error) {
	if task.RemoteID == "" {
		return 0, fmt.Errorf("cannot materialize task without remote id")
	}

	tagsJSON, err := marshalTags(task.Tags)
	if err != nil {
		return 0, err
	}

	query := `
	INSERT INTO tasks (
		remote_id, title, due_date, due_time, tags, done,
		usage_count, recurrence, repeat_days,
		created_at, updated_at, synced, last_sync_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	`

	res, err := s.db.conn.ExecContext(ctx, query,
		task.RemoteID,
		task.Title,
		task.DueDate,
		task.DueTime,
		tagsJSON,
		task.Done,
		task.UsageCount,
		string(task.Recurrence),
		task.RepeatDays,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
		timePtrToNullString(task.LastSyncAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to materialize task %s: %w", task.RemoteID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read task id: %w", err)
	}
	task.LocalID = id
	return id, nil
}

// Overwrite replaces a task's payload and timestamps with the remote copy
// and marks it synced. Used when the remote side won last-write-wins.
func (s *TaskStore) Overwrite(ctx context.Context, task *model.Task) error {
	tagsJSON, err := marshalTags(task.Tags)
	if err != nil {
		return err
	}

	query := `
	UPDATE tasks SET
		title = ?, due_date = ?, due_time = ?, tags = ?, done = ?,
		usage_count = ?, recurrence = ?, repeat_days = ?,
		created_at = ?, updated_at = ?, synced = 1, last_sync_at = ?
	WHERE id = ?
	`

	res, err := s.db.conn.ExecContext(ctx, query,
		task.Title,
		task.DueDate,
		task.DueTime,
		tagsJSON,
		task.Done,
		task.UsageCount,
		string(task.Recurrence),
		task.RepeatDays,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
		timePtrToNullString(task.LastSyncAt),
		task.LocalID,
	)
	if err != nil {
		return fmt.Errorf("failed to overwrite task %d: %w", task.LocalID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %d: %w", task.LocalID, ErrNotFound)
	}
	return nil
}

// MarkSynced records a successful reconciliation for a task: attaches the
// remote id (for freshly uploaded records) and sets synced/last_sync_at.
// The payload and updated_at are untouched.
func (s *TaskStore) MarkSynced(ctx context.Context, id int64, remoteID string, at time.Time) error {
	query := `UPDATE tasks SET remote_id = ?, synced = 1, last_sync_at = ? WHERE id = ?`
	res, err := s.db.conn.ExecContext(ctx, query, remoteID, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark task %d synced: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns the total number of tasks.
func (s *TaskStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTask reads one task row.
func scanTask(row rowScanner) (*model.Task, error) {
	var task model.Task
	var tagsJSON, createdAt, updatedAt, recurrence string
	var lastSyncAt sql.NullString

	err := row.Scan(
		&task.LocalID,
		&task.RemoteID,
		&task.Title,
		&task.DueDate,
		&task.DueTime,
		&tagsJSON,
		&task.Done,
		&task.UsageCount,
		&recurrence,
		&task.RepeatDays,
		&createdAt,
		&updatedAt,
		&task.Synced,
		&lastSyncAt,
	)
	if err != nil {
		return nil, err
	}

	task.Recurrence = model.Recurrence(recurrence)
	task.CreatedAt = parseTime(createdAt)
	task.UpdatedAt = parseTime(updatedAt)
	task.LastSyncAt = nullStringToTimePtr(lastSyncAt)

	tags, err := unmarshalTags(tagsJSON)
	if err != nil {
		return nil, err
	}
	task.Tags = tags

	return &task, nil
}

// scanTasks reads all task rows from a result set.
func scanTasks(rows *sql.Rows) ([]*model.Task, error) {
	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
