package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProber struct {
	ok     bool
	reason string
	calls  int32
}

func (p *fakeProber) Check(ctx context.Context) (bool, string) {
	atomic.AddInt32(&p.calls, 1)
	return p.ok, p.reason
}

type fakeCollection struct {
	name    string
	err     error
	outcome Outcome
	runs    int32

	// block, when non-nil, is closed by the test to let Run return;
	// started signals that Run is in flight.
	block   chan struct{}
	started chan struct{}
}

func (c *fakeCollection) Name() string { return c.name }

func (c *fakeCollection) Run(ctx context.Context) (*Outcome, error) {
	atomic.AddInt32(&c.runs, 1)
	if c.started != nil {
		close(c.started)
	}
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return nil, c.err
	}
	out := c.outcome
	out.Collection = c.name
	return &out, nil
}

func newTestOrchestrator(prober Prober, collections ...Collection) *Orchestrator {
	settings := NewSettings(true, "token")
	return NewOrchestrator(settings, prober, collections, testLogger())
}

func TestSyncGatingErrorState(t *testing.T) {
	tasks := &fakeCollection{name: "tasks"}
	o := newTestOrchestrator(&fakeProber{ok: false, reason: "remote unreachable: connection refused"}, tasks)

	o.Sync(context.Background())

	st := o.Status()
	if st.State != StateError {
		t.Errorf("state = %v, want error", st.State)
	}
	if st.Error != "remote unreachable: connection refused" {
		t.Errorf("error = %q", st.Error)
	}
	if st.IsOnline {
		t.Error("expected offline status")
	}
	if st.SyncInProgress {
		t.Error("sync should not be in progress")
	}
	if st.LastSync != nil {
		t.Error("gating failure must not update last sync time")
	}
	if atomic.LoadInt32(&tasks.runs) != 0 {
		t.Error("collections must not run when gating fails")
	}
}

func TestSyncPartialCollectionFailureStillIdle(t *testing.T) {
	tasks := &fakeCollection{name: "tasks", outcome: Outcome{Uploaded: 2}}
	notes := &fakeCollection{name: "notes", err: errors.New("collection not found")}
	o := newTestOrchestrator(&fakeProber{ok: true}, tasks, notes)

	o.Sync(context.Background())

	st := o.Status()
	if st.State != StateIdle {
		t.Errorf("state = %v, want idle", st.State)
	}
	if st.Error != "" {
		t.Errorf("error = %q, want empty", st.Error)
	}
	if st.LastSync == nil {
		t.Error("expected last sync time to be set")
	}
	if atomic.LoadInt32(&tasks.runs) != 1 {
		t.Errorf("tasks ran %d times, want 1", tasks.runs)
	}
	if atomic.LoadInt32(&notes.runs) != 1 {
		t.Errorf("notes ran %d times, want 1", notes.runs)
	}
}

func TestSyncAtMostOneConcurrent(t *testing.T) {
	tasks := &fakeCollection{
		name:    "tasks",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	o := newTestOrchestrator(&fakeProber{ok: true}, tasks)

	done := make(chan struct{})
	go func() {
		o.Sync(context.Background())
		close(done)
	}()

	select {
	case <-tasks.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first sync never started")
	}

	// Second call while syncing: no-op, returns immediately
	o.Sync(context.Background())
	if n := atomic.LoadInt32(&tasks.runs); n != 1 {
		t.Errorf("collection ran %d times, want 1", n)
	}

	close(tasks.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first sync never finished")
	}

	if st := o.Status(); st.State != StateIdle {
		t.Errorf("state = %v, want idle", st.State)
	}
}

func TestSubscribeDeliversTransitions(t *testing.T) {
	tasks := &fakeCollection{name: "tasks"}
	o := newTestOrchestrator(&fakeProber{ok: true}, tasks)

	var seen []Status
	unsub := o.Subscribe(func(st Status) {
		seen = append(seen, st)
	})

	o.Sync(context.Background())

	if len(seen) < 2 {
		t.Fatalf("expected multiple notifications per cycle, got %d", len(seen))
	}
	if !seen[0].SyncInProgress || seen[0].State != StateSyncing {
		t.Errorf("first notification should be syncing, got %+v", seen[0])
	}
	last := seen[len(seen)-1]
	if last.State != StateIdle || last.SyncInProgress || last.LastSync == nil {
		t.Errorf("last notification should be idle with last sync set, got %+v", last)
	}

	count := len(seen)
	unsub()
	o.Sync(context.Background())
	if len(seen) != count {
		t.Error("unsubscribed observer still notified")
	}
}

func TestSubscribeOutcomes(t *testing.T) {
	tasks := &fakeCollection{name: "tasks", outcome: Outcome{Pushed: 1, Materialized: 2}}
	o := newTestOrchestrator(&fakeProber{ok: true}, tasks)

	var outcomes []Outcome
	o.SubscribeOutcomes(func(out Outcome) {
		outcomes = append(outcomes, out)
	})

	o.Sync(context.Background())

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Collection != "tasks" || outcomes[0].Pushed != 1 || outcomes[0].Materialized != 2 {
		t.Errorf("unexpected outcome: %+v", outcomes[0])
	}
}

func TestAutoSyncRunsAndStops(t *testing.T) {
	tasks := &fakeCollection{name: "tasks"}
	o := newTestOrchestrator(&fakeProber{ok: true}, tasks)

	o.StartAutoSync(10 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&tasks.runs) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("auto-sync never ticked twice")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Restarting replaces the previous schedule; it must not panic or
	// leave a second timer behind
	o.StartAutoSync(10 * time.Millisecond)

	deadline = time.Now().Add(2 * time.Second)
	base := atomic.LoadInt32(&tasks.runs)
	for atomic.LoadInt32(&tasks.runs) == base {
		if time.Now().After(deadline) {
			t.Fatal("restarted auto-sync never ticked")
		}
		time.Sleep(5 * time.Millisecond)
	}

	o.StopAutoSync()
	after := atomic.LoadInt32(&tasks.runs)
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&tasks.runs); got != after {
		t.Errorf("sync still running after stop: %d -> %d", after, got)
	}

	// Stop when not running is safe
	o.StopAutoSync()
}

func TestStatusSnapshotIsDetached(t *testing.T) {
	tasks := &fakeCollection{name: "tasks"}
	o := newTestOrchestrator(&fakeProber{ok: true}, tasks)
	o.Sync(context.Background())

	st := o.Status()
	if st.LastSync == nil {
		t.Fatal("expected last sync set")
	}
	*st.LastSync = time.Time{}

	if got := o.Status(); got.LastSync == nil || got.LastSync.IsZero() {
		t.Error("mutating a snapshot leaked into orchestrator state")
	}
}
