package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestListTasksDrainsAllPages(t *testing.T) {
	const total = 450 // three pages at 200 per page
	var authSeen string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/collections/tasks/records" {
			http.NotFound(w, r)
			return
		}
		authSeen = r.Header.Get("Authorization")

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
		if page < 1 || perPage < 1 {
			t.Errorf("bad pagination params: page=%d perPage=%d", page, perPage)
		}

		start := (page - 1) * perPage
		end := start + perPage
		if end > total {
			end = total
		}
		items := make([]TaskRecord, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, TaskRecord{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("Task %d", i)})
		}

		totalPages := (total + perPage - 1) / perPage
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"page":       page,
			"perPage":    perPage,
			"totalPages": totalPages,
			"items":      items,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "user-token")
	tasks, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	if len(tasks) != total {
		t.Errorf("got %d tasks, want %d", len(tasks), total)
	}
	if tasks[0].ID != "t0" || tasks[total-1].ID != fmt.Sprintf("t%d", total-1) {
		t.Error("records out of order or truncated")
	}
	if authSeen != "user-token" {
		t.Errorf("Authorization header = %q", authSeen)
	}
}

func TestListNotesCollectionMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	_, err := c.ListNotes(context.Background())
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("err = %v, want ErrCollectionNotFound", err)
	}
}

func TestListTasksUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad-token")
	_, err := c.ListTasks(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestCreateTaskReturnsAssignedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var rec TaskRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		rec.ID = "assigned-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	created, err := c.CreateTask(context.Background(), TaskRecord{Title: "Buy milk", Tags: []string{}})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if created.ID != "assigned-1" {
		t.Errorf("created id = %q", created.ID)
	}
	if created.Title != "Buy milk" {
		t.Errorf("created title = %q", created.Title)
	}
}

func TestUpdateNoteTargetsRecordPath(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		var rec NoteRecord
		_ = json.NewDecoder(r.Body).Decode(&rec)
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	_, err := c.UpdateNote(context.Background(), "n42", NoteRecord{Title: "updated", Content: "body"})
	if err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}
	if gotPath != "/api/collections/notes/records/n42" {
		t.Errorf("path = %q", gotPath)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", gotMethod)
	}
}

func TestWireTimeRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-03T00:00:00Z", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"2024-01-03 12:30:45.123Z", time.Date(2024, 1, 3, 12, 30, 45, 123_000_000, time.UTC)},
		{"", time.Time{}},
		{"garbage", time.Time{}},
	}
	for _, tt := range tests {
		if got := ParseWireTime(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseWireTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	if got := ParseWireTime(FormatWireTime(at)); !got.Equal(at) {
		t.Errorf("round trip changed %v to %v", at, got)
	}
	if FormatWireTime(time.Time{}) != "" {
		t.Error("zero time should format empty")
	}
}

func TestTaskWireModelRoundTrip(t *testing.T) {
	rec := TaskRecord{
		ID:         "r7",
		Title:      "Water plants",
		Date:       "2024-06-01",
		Time:       "09:00",
		Tags:       []string{"home"},
		Done:       false,
		UsageCount: 3,
		Recurrence: "weekly",
		Created:    "2024-01-01T00:00:00Z",
		Updated:    "2024-05-01T00:00:00Z",
	}

	task := rec.ToModel()
	if task.RemoteID != "r7" || task.Title != "Water plants" || task.Recurrence != "weekly" {
		t.Errorf("unexpected model: %+v", task)
	}
	if task.UpdatedAt.IsZero() {
		t.Error("updated timestamp not parsed")
	}

	back := TaskToWire(task)
	if back.ID != rec.ID || back.Title != rec.Title || back.Date != rec.Date ||
		back.Recurrence != rec.Recurrence || back.UsageCount != rec.UsageCount {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
