package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/steveyegge/syncpad/internal/model"
)

// Inbox record kinds.
const (
	KindTask = "task"
	KindNote = "note"
)

// InboxRecord is the drop-in file format for quick capture. Any process
// can create a record by writing one of these as JSON into the inbox
// directory; the daemon picks it up, stores it, and deletes the file.
type InboxRecord struct {
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Date       string   `json:"date,omitempty"`
	Time       string   `json:"time,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Recurrence string   `json:"recurrence,omitempty"`
	RepeatDays int      `json:"repeatDays,omitempty"`
	Content    string   `json:"content,omitempty"`
}

// Validate checks the record before it is imported.
func (r *InboxRecord) Validate() error {
	switch r.Kind {
	case KindTask:
		return r.Task().Validate()
	case KindNote:
		return r.Note().Validate()
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
}

// Task converts the record to a task model. Only meaningful for KindTask.
func (r *InboxRecord) Task() *model.Task {
	rec := model.Recurrence(r.Recurrence)
	if rec == "" {
		rec = model.RecurNone
	}
	return &model.Task{
		Title:      strings.TrimSpace(r.Title),
		DueDate:    r.Date,
		DueTime:    r.Time,
		Tags:       r.Tags,
		Recurrence: rec,
		RepeatDays: r.RepeatDays,
	}
}

// Note converts the record to a note model. Only meaningful for KindNote.
func (r *InboxRecord) Note() *model.Note {
	return &model.Note{
		Title:   strings.TrimSpace(r.Title),
		Content: r.Content,
	}
}

// ReadInboxFile reads and validates a single inbox record file.
func ReadInboxFile(path string) (*InboxRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox file: %w", err)
	}

	var rec InboxRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse inbox file %s: %w", path, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid inbox record %s: %w", path, err)
	}
	return &rec, nil
}

// WriteInboxFile writes a record into dir in the drop-in format. Used by
// the CLI's capture command and by tests. The write goes through a temp
// file and rename so the watcher never sees a half-written record.
func WriteInboxFile(dir, name string, rec *InboxRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal inbox record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".inbox-*")
	if err != nil {
		return fmt.Errorf("failed to create inbox file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write inbox file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close inbox file: %w", err)
	}

	final := name
	if !strings.HasSuffix(final, ".json") {
		final += ".json"
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, final)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to place inbox file: %w", err)
	}
	return nil
}
