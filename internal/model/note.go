package model

import "fmt"

// Note is a free-form text record.
type Note struct {
	SyncMeta

	Title   string
	Content string
}

// Validate checks field values before the note is persisted.
func (n *Note) Validate() error {
	if n.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(n.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(n.Title))
	}
	return nil
}
