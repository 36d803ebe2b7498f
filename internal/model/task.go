package model

import (
	"fmt"
	"time"
)

// Recurrence describes how a task repeats after completion.
type Recurrence string

const (
	RecurNone   Recurrence = "none"
	RecurDaily  Recurrence = "daily"
	RecurWeekly Recurrence = "weekly"
	RecurCustom Recurrence = "custom"
)

// Valid reports whether r is one of the known recurrence kinds.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurCustom:
		return true
	}
	return false
}

// DueDateLayout is the storage and wire format for task due dates.
const DueDateLayout = "2006-01-02"

// Task is a single to-do item.
type Task struct {
	SyncMeta

	Title string

	// DueDate is YYYY-MM-DD, empty for undated tasks. DueTime is HH:MM,
	// only meaningful when DueDate is set.
	DueDate string
	DueTime string

	Tags []string
	Done bool

	// UsageCount counts completions, used for frequency-based ordering
	// in the UI layer.
	UsageCount int

	Recurrence Recurrence

	// RepeatDays is the interval for RecurCustom, in days.
	RepeatDays int
}

// Validate checks field values before the task is persisted.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(t.Title))
	}
	if t.Recurrence != "" && !t.Recurrence.Valid() {
		return fmt.Errorf("unknown recurrence %q", t.Recurrence)
	}
	if t.Recurrence == RecurCustom && t.RepeatDays <= 0 {
		return fmt.Errorf("custom recurrence requires repeat_days > 0 (got %d)", t.RepeatDays)
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DueDateLayout, t.DueDate); err != nil {
			return fmt.Errorf("invalid due date %q: %w", t.DueDate, err)
		}
	}
	return nil
}

// Recurring reports whether completing the task reschedules it instead of
// closing it.
func (t *Task) Recurring() bool {
	return t.Recurrence != "" && t.Recurrence != RecurNone
}

// interval returns the recurrence step in days, or 0 for non-recurring.
func (t *Task) interval() int {
	switch t.Recurrence {
	case RecurDaily:
		return 1
	case RecurWeekly:
		return 7
	case RecurCustom:
		return t.RepeatDays
	}
	return 0
}

// NextDueDate computes the first occurrence strictly after the given day,
// stepping from the current due date by the recurrence interval. Returns
// the current due date unchanged for non-recurring or undated tasks.
func (t *Task) NextDueDate(after time.Time) string {
	step := t.interval()
	if step <= 0 || t.DueDate == "" {
		return t.DueDate
	}
	due, err := time.Parse(DueDateLayout, t.DueDate)
	if err != nil {
		return t.DueDate
	}
	day := after.Truncate(24 * time.Hour)
	for !due.After(day) {
		due = due.AddDate(0, 0, step)
	}
	return due.Format(DueDateLayout)
}

// Complete marks the task done as of now. Recurring tasks are rescheduled
// to their next occurrence and stay open; non-recurring tasks close.
// Either way the completion counts toward UsageCount and the mutation
// clears the synced flag. Returns true when the task was rescheduled.
func (t *Task) Complete(now time.Time) bool {
	t.UsageCount++
	rescheduled := false
	if t.Recurring() && t.DueDate != "" {
		t.DueDate = t.NextDueDate(now)
		t.Done = false
		rescheduled = true
	} else {
		t.Done = true
	}
	t.Touch(now)
	return rescheduled
}
