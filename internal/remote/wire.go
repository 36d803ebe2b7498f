package remote

import (
	"time"

	"github.com/steveyegge/syncpad/internal/model"
)

// TaskRecord is the wire shape of a task on the remote backend.
type TaskRecord struct {
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title"`
	Date       string   `json:"date,omitempty"`
	Time       string   `json:"time,omitempty"`
	Tags       []string `json:"tags"`
	Done       bool     `json:"done"`
	UsageCount int      `json:"usageCount,omitempty"`
	Recurrence string   `json:"recurrence,omitempty"`
	RepeatDays int      `json:"repeatDays,omitempty"`
	Created    string   `json:"created,omitempty"`
	Updated    string   `json:"updated,omitempty"`
}

// NoteRecord is the wire shape of a note on the remote backend.
type NoteRecord struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`
}

// wireTimeLayouts are the timestamp formats accepted off the wire. The
// backend's own format puts a space between date and time.
var wireTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000Z",
	"2006-01-02 15:04:05Z",
}

// ParseWireTime reads a remote timestamp; the zero time for empty or
// unparseable values.
func ParseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatWireTime renders a timestamp for the wire.
func FormatWireTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ToModel converts a wire task to the local record shape. The result is
// linked to the remote id; sync bookkeeping beyond that is the caller's.
func (r TaskRecord) ToModel() *model.Task {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	rec := model.Recurrence(r.Recurrence)
	if rec == "" {
		rec = model.RecurNone
	}
	return &model.Task{
		SyncMeta: model.SyncMeta{
			RemoteID:  r.ID,
			CreatedAt: ParseWireTime(r.Created),
			UpdatedAt: ParseWireTime(r.Updated),
		},
		Title:      r.Title,
		DueDate:    r.Date,
		DueTime:    r.Time,
		Tags:       tags,
		Done:       r.Done,
		UsageCount: r.UsageCount,
		Recurrence: rec,
		RepeatDays: r.RepeatDays,
	}
}

// TaskToWire converts a local task to its wire shape. Timestamps ride
// along so both sides agree on updated_at after a push.
func TaskToWire(t *model.Task) TaskRecord {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskRecord{
		ID:         t.RemoteID,
		Title:      t.Title,
		Date:       t.DueDate,
		Time:       t.DueTime,
		Tags:       tags,
		Done:       t.Done,
		UsageCount: t.UsageCount,
		Recurrence: string(t.Recurrence),
		RepeatDays: t.RepeatDays,
		Created:    FormatWireTime(t.CreatedAt),
		Updated:    FormatWireTime(t.UpdatedAt),
	}
}

// ToModel converts a wire note to the local record shape.
func (r NoteRecord) ToModel() *model.Note {
	return &model.Note{
		SyncMeta: model.SyncMeta{
			RemoteID:  r.ID,
			CreatedAt: ParseWireTime(r.Created),
			UpdatedAt: ParseWireTime(r.Updated),
		},
		Title:   r.Title,
		Content: r.Content,
	}
}

// NoteToWire converts a local note to its wire shape.
func NoteToWire(n *model.Note) NoteRecord {
	return NoteRecord{
		ID:      n.RemoteID,
		Title:   n.Title,
		Content: n.Content,
		Created: FormatWireTime(n.CreatedAt),
		Updated: FormatWireTime(n.UpdatedAt),
	}
}
