package sync

import (
	"context"
	"log"
	"os"
	stdsync "sync"
	"time"
)

// State is the orchestrator's coarse state machine.
type State int

const (
	// StateIdle means no sync is running and the last attempt, if any,
	// either succeeded or has been superseded.
	StateIdle State = iota

	// StateSyncing means a sync attempt is in flight.
	StateSyncing

	// StateError means the last attempt failed a gating check. Only
	// gating failures land here; per-collection and per-record failures
	// still end Idle.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is an immutable snapshot of the sync engine as observers see
// it. Subscribers receive a fresh copy on every change; several arrive
// per sync cycle.
type Status struct {
	State          State
	IsOnline       bool
	LastSync       *time.Time
	SyncInProgress bool
	Error          string
	IsEnabled      bool
	RequiresAuth   bool
}

// statusObserver pairs a subscriber id with its callback so delivery
// follows registration order and unsubscription is O(1) by id.
type statusObserver struct {
	id int
	fn func(Status)
}

type outcomeObserver struct {
	id int
	fn func(Outcome)
}

// Orchestrator owns sync state, drives manual and periodic attempts,
// and publishes status to observers.
type Orchestrator struct {
	collections []Collection
	prober      Prober
	settings    *Settings
	logger      *log.Logger
	now         func() time.Time

	mu          stdsync.Mutex
	status      Status
	observers   []statusObserver
	outcomeObs  []outcomeObserver
	nextObsID   int

	timerMu     stdsync.Mutex
	cancelTimer context.CancelFunc
	timerWg     stdsync.WaitGroup
}

// NewOrchestrator wires the sync engine together. Collections reconcile
// in the given order on every attempt. If logger is nil, a default
// logger writing to stderr is used.
func NewOrchestrator(settings *Settings, prober Prober, collections []Collection, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Orchestrator{
		collections: collections,
		prober:      prober,
		settings:    settings,
		logger:      logger,
		now:         time.Now,
		status: Status{
			State:        StateIdle,
			IsEnabled:    settings.Enabled(),
			RequiresAuth: !settings.Authenticated(),
		},
	}
}

// Status returns an immutable snapshot of the current status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// snapshotLocked copies the status, including the LastSync pointee, so
// callers can hold the result indefinitely.
func (o *Orchestrator) snapshotLocked() Status {
	st := o.status
	if st.LastSync != nil {
		t := *st.LastSync
		st.LastSync = &t
	}
	return st
}

// Subscribe registers a status observer and returns its unsubscribe
// function. Delivery is synchronous, in registration order, on every
// state transition and intermediate field update.
func (o *Orchestrator) Subscribe(fn func(Status)) func() {
	o.mu.Lock()
	id := o.nextObsID
	o.nextObsID++
	o.observers = append(o.observers, statusObserver{id: id, fn: fn})
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, obs := range o.observers {
			if obs.id == id {
				o.observers = append(o.observers[:i], o.observers[i+1:]...)
				return
			}
		}
	}
}

// SubscribeOutcomes registers an observer for per-collection outcomes.
func (o *Orchestrator) SubscribeOutcomes(fn func(Outcome)) func() {
	o.mu.Lock()
	id := o.nextObsID
	o.nextObsID++
	o.outcomeObs = append(o.outcomeObs, outcomeObserver{id: id, fn: fn})
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, obs := range o.outcomeObs {
			if obs.id == id {
				o.outcomeObs = append(o.outcomeObs[:i], o.outcomeObs[i+1:]...)
				return
			}
		}
	}
}

// notify delivers the current status snapshot to all observers. The
// callbacks run outside the lock; a subscriber calling back into the
// orchestrator must not deadlock.
func (o *Orchestrator) notify() {
	o.mu.Lock()
	st := o.snapshotLocked()
	observers := make([]statusObserver, len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, obs := range observers {
		obs.fn(st)
	}
}

// notifyOutcome delivers a collection outcome to outcome observers.
func (o *Orchestrator) notifyOutcome(out Outcome) {
	o.mu.Lock()
	observers := make([]outcomeObserver, len(o.outcomeObs))
	copy(observers, o.outcomeObs)
	o.mu.Unlock()

	for _, obs := range observers {
		obs.fn(out)
	}
}

// Sync runs one sync attempt. Safe to call while a sync is already in
// flight: the call is a no-op, not an error. Gating failures transition
// to StateError; per-collection failures are logged and skipped, and the
// attempt still ends Idle with LastSync updated.
func (o *Orchestrator) Sync(ctx context.Context) {
	o.mu.Lock()
	if o.status.SyncInProgress {
		o.mu.Unlock()
		o.logger.Printf("sync already in progress, skipping")
		return
	}
	o.status.State = StateSyncing
	o.status.SyncInProgress = true
	o.status.IsEnabled = o.settings.Enabled()
	o.status.RequiresAuth = !o.settings.Authenticated()
	o.mu.Unlock()
	o.notify()

	ok, reason := o.prober.Check(ctx)

	o.mu.Lock()
	o.status.IsOnline = ok
	o.mu.Unlock()
	o.notify()

	if !ok {
		o.mu.Lock()
		o.status.State = StateError
		o.status.Error = reason
		o.status.SyncInProgress = false
		o.mu.Unlock()
		o.logger.Printf("sync aborted: %s", reason)
		o.notify()
		return
	}

	for _, col := range o.collections {
		out, err := col.Run(ctx)
		if err != nil {
			// Per-collection failure: skip it, keep going
			o.logger.Printf("WARNING: collection %s failed: %v", col.Name(), err)
			continue
		}
		o.logger.Printf("collection %s: pushed=%d pulled=%d materialized=%d uploaded=%d unchanged=%d failures=%d",
			out.Collection, out.Pushed, out.Pulled, out.Materialized, out.Uploaded, out.Unchanged, len(out.Failures))
		o.notifyOutcome(*out)
	}

	now := o.now()
	o.mu.Lock()
	o.status.State = StateIdle
	o.status.SyncInProgress = false
	o.status.Error = ""
	o.status.LastSync = &now
	o.mu.Unlock()
	o.notify()
}

// StartAutoSync schedules periodic Sync calls at the given interval.
// Calling it again cancels the previous schedule first, so there is
// never more than one timer.
func (o *Orchestrator) StartAutoSync(interval time.Duration) {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()

	if o.cancelTimer != nil {
		o.cancelTimer()
		o.timerWg.Wait()
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancelTimer = cancel

	o.timerWg.Add(1)
	go func() {
		defer o.timerWg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.Sync(ctx)
			}
		}
	}()

	o.logger.Printf("auto-sync scheduled every %v", interval)
}

// StopAutoSync cancels the periodic schedule. Safe to call when not
// running.
func (o *Orchestrator) StopAutoSync() {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()

	if o.cancelTimer == nil {
		return
	}
	o.cancelTimer()
	o.timerWg.Wait()
	o.cancelTimer = nil

	o.logger.Printf("auto-sync stopped")
}
