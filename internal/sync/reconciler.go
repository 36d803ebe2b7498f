package sync

import (
	"log"
	"os"
	"time"

	"context"
)

// Outcome summarizes one reconciliation pass over one collection.
type Outcome struct {
	Collection string

	// Pushed counts linked records where the local copy was newer and
	// overwrote the remote. Pulled is the reverse. Unchanged counts
	// linked records with equal timestamps.
	Pushed    int
	Pulled    int
	Unchanged int

	// Materialized counts remote-only records created locally.
	// Uploaded counts local-only records created remotely.
	Materialized int
	Uploaded     int

	// Failures holds per-record errors. They never abort the pass.
	Failures []Failure
}

// Failure is a single record-level error from a reconciliation pass.
type Failure struct {
	LocalID  int64
	RemoteID string
	Op       string
	Err      error
}

// Touched returns the number of records the pass transferred or created
// on either side.
func (o *Outcome) Touched() int {
	return o.Pushed + o.Pulled + o.Materialized + o.Uploaded
}

// Reconciler merges the local and remote sets of one collection under
// last-write-wins by updated_at.
type Reconciler[R Record] struct {
	name   string
	local  LocalCollection[R]
	remote RemoteCollection[R]
	logger *log.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler for one collection. If logger is
// nil, a default logger writing to stderr is used.
func NewReconciler[R Record](name string, local LocalCollection[R], remote RemoteCollection[R], logger *log.Logger) *Reconciler[R] {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Reconciler[R]{
		name:   name,
		local:  local,
		remote: remote,
		logger: logger,
		now:    time.Now,
	}
}

// Name implements Collection.
func (r *Reconciler[R]) Name() string { return r.name }

// Run fetches complete snapshots of both sides and reconciles them.
// A fetch error is a per-collection failure and is returned as-is.
func (r *Reconciler[R]) Run(ctx context.Context) (*Outcome, error) {
	remotes, err := r.remote.FullList(ctx)
	if err != nil {
		return nil, err
	}

	locals, err := r.local.List(ctx)
	if err != nil {
		return nil, err
	}

	return r.Reconcile(ctx, locals, remotes), nil
}

// Reconcile merges full snapshots taken at call time.
//
// Linked locals are matched to remotes by remote id. For each remote
// record, in snapshot order:
//
//   - matched and local newer: push the local payload to the remote
//   - matched and remote newer: overwrite the local copy
//   - matched with equal timestamps: mark synced, no transfer
//   - unmatched: materialize the remote record locally
//
// Then every unlinked local record is created remotely and linked to the
// returned id. Remote-side processing runs strictly before the unlinked
// uploads, so a stale linked record is reconciled before any local
// duplicate of it is pushed up (duplicates themselves are not detected).
//
// Every record-level error is appended to the outcome and the pass moves
// on; nothing here aborts the batch.
func (r *Reconciler[R]) Reconcile(ctx context.Context, locals, remotes []R) *Outcome {
	out := &Outcome{Collection: r.name}
	now := r.now()

	linked := make(map[string]R)
	var unlinked []R
	for _, loc := range locals {
		m := loc.Meta()
		if m.Linked() {
			linked[m.RemoteID] = loc
		} else {
			unlinked = append(unlinked, loc)
		}
	}

	for _, rem := range remotes {
		rm := rem.Meta()
		if rm.RemoteID == "" {
			// A listed record without an id cannot be matched or linked
			r.logger.Printf("WARNING: %s: remote record without id, skipping", r.name)
			continue
		}

		loc, ok := linked[rm.RemoteID]
		if !ok {
			// Remote-only: create the local counterpart
			rm.MarkSynced(rm.RemoteID, now)
			if _, err := r.local.Materialize(ctx, rem); err != nil {
				out.fail(0, rm.RemoteID, "materialize", err, r.logger)
				continue
			}
			out.Materialized++
			continue
		}

		lm := loc.Meta()
		switch {
		case lm.UpdatedAt.After(rm.UpdatedAt):
			// Local wins: overwrite the remote copy
			if err := r.remote.Update(ctx, loc); err != nil {
				out.fail(lm.LocalID, lm.RemoteID, "push", err, r.logger)
				continue
			}
			if err := r.local.MarkSynced(ctx, lm.LocalID, lm.RemoteID, now); err != nil {
				out.fail(lm.LocalID, lm.RemoteID, "mark-synced", err, r.logger)
				continue
			}
			out.Pushed++

		case rm.UpdatedAt.After(lm.UpdatedAt):
			// Remote wins: overwrite the local copy, timestamps included
			rm.LocalID = lm.LocalID
			rm.MarkSynced(rm.RemoteID, now)
			if err := r.local.Overwrite(ctx, rem); err != nil {
				out.fail(lm.LocalID, lm.RemoteID, "pull", err, r.logger)
				continue
			}
			out.Pulled++

		default:
			// Equal timestamps: already consistent, no payload transfer
			if err := r.local.MarkSynced(ctx, lm.LocalID, lm.RemoteID, now); err != nil {
				out.fail(lm.LocalID, lm.RemoteID, "mark-synced", err, r.logger)
				continue
			}
			out.Unchanged++
		}
	}

	for _, loc := range unlinked {
		lm := loc.Meta()
		remoteID, err := r.remote.Create(ctx, loc)
		if err != nil {
			// Leave the record untouched; it stays unlinked for the
			// next cycle
			out.fail(lm.LocalID, "", "upload", err, r.logger)
			continue
		}
		if err := r.local.MarkSynced(ctx, lm.LocalID, remoteID, now); err != nil {
			out.fail(lm.LocalID, remoteID, "mark-synced", err, r.logger)
			continue
		}
		out.Uploaded++
	}

	return out
}

// fail records and logs a per-record failure.
func (o *Outcome) fail(localID int64, remoteID, op string, err error, logger *log.Logger) {
	o.Failures = append(o.Failures, Failure{
		LocalID:  localID,
		RemoteID: remoteID,
		Op:       op,
		Err:      err,
	})
	logger.Printf("WARNING: %s: %s failed for record local=%d remote=%q: %v",
		o.Collection, op, localID, remoteID, err)
}
