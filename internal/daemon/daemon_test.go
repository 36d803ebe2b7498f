package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/steveyegge/syncpad/internal/store"
	"github.com/steveyegge/syncpad/internal/sync"
)

type stubProber struct{}

func (stubProber) Check(context.Context) (bool, string) { return true, "" }

func setupDaemon(t *testing.T) (*Daemon, *store.DB, string) {
	t.Helper()

	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	settings := sync.NewSettings(true, "tok")
	orch := sync.NewOrchestrator(settings, stubProber{}, nil, testLogger())

	inbox := filepath.Join(dir, "inbox")
	d, err := NewWithConfig(db, orch, inbox, &Config{
		SyncInterval:     0,
		DebounceInterval: 10 * time.Millisecond,
		Logger:           testLogger(),
	})
	if err != nil {
		t.Fatalf("failed to create daemon: %v", err)
	}
	return d, db, inbox
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestInboxRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     InboxRecord
		wantErr bool
	}{
		{"valid task", InboxRecord{Kind: KindTask, Title: "x"}, false},
		{"valid note", InboxRecord{Kind: KindNote, Title: "x", Content: "body"}, false},
		{"missing kind", InboxRecord{Title: "x"}, true},
		{"unknown kind", InboxRecord{Kind: "event", Title: "x"}, true},
		{"task without title", InboxRecord{Kind: KindTask}, true},
		{"task with bad date", InboxRecord{Kind: KindTask, Title: "x", Date: "tomorrow"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteReadInboxRoundTrip(t *testing.T) {
	dir := t.TempDir()

	rec := &InboxRecord{
		Kind:  KindTask,
		Title: "Buy milk",
		Date:  "2024-06-01",
		Tags:  []string{"errands"},
	}
	if err := WriteInboxFile(dir, "buy-milk", rec); err != nil {
		t.Fatalf("WriteInboxFile failed: %v", err)
	}

	got, err := ReadInboxFile(filepath.Join(dir, "buy-milk.json"))
	if err != nil {
		t.Fatalf("ReadInboxFile failed: %v", err)
	}
	if got.Title != "Buy milk" || got.Date != "2024-06-01" {
		t.Errorf("round trip mangled record: %+v", got)
	}
}

func TestSweepInboxImportsPending(t *testing.T) {
	d, db, inbox := setupDaemon(t)
	ctx := context.Background()

	if err := WriteInboxFile(inbox, "t1", &InboxRecord{Kind: KindTask, Title: "task one"}); err != nil {
		t.Fatalf("WriteInboxFile failed: %v", err)
	}
	if err := WriteInboxFile(inbox, "n1", &InboxRecord{Kind: KindNote, Title: "note one"}); err != nil {
		t.Fatalf("WriteInboxFile failed: %v", err)
	}

	if err := d.SweepInbox(ctx); err != nil {
		t.Fatalf("SweepInbox failed: %v", err)
	}

	if n, err := db.Tasks().Count(ctx); err != nil || n != 1 {
		t.Errorf("task count = %d (err %v), want 1", n, err)
	}
	if n, err := db.Notes().Count(ctx); err != nil || n != 1 {
		t.Errorf("note count = %d (err %v), want 1", n, err)
	}

	// Imported files are consumed.
	entries, err := os.ReadDir(inbox)
	if err != nil {
		t.Fatalf("failed to read inbox: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("inbox not empty after sweep: %d entries", len(entries))
	}
}

func TestSweepInboxRejectsMalformed(t *testing.T) {
	d, db, inbox := setupDaemon(t)
	ctx := context.Background()

	bad := filepath.Join(inbox, "garbage.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatalf("failed to write bad file: %v", err)
	}

	if err := d.SweepInbox(ctx); err != nil {
		t.Fatalf("SweepInbox failed: %v", err)
	}

	if n, _ := db.Tasks().Count(ctx); n != 0 {
		t.Errorf("task count = %d, want 0", n)
	}
	if _, err := os.Stat(bad + ".rejected"); err != nil {
		t.Errorf("bad file not set aside: %v", err)
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("bad file still present under original name")
	}
}

func TestDaemonImportsWatchedFile(t *testing.T) {
	d, db, inbox := setupDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	// Give the watcher a moment to attach before dropping the file.
	time.Sleep(100 * time.Millisecond)

	if err := WriteInboxFile(inbox, "dropped", &InboxRecord{Kind: KindTask, Title: "dropped in"}); err != nil {
		t.Fatalf("WriteInboxFile failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		n, err := db.Tasks().Count(context.Background())
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for import")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}
