package sync

import (
	"context"
	"time"

	"github.com/steveyegge/syncpad/internal/model"
)

// Record is satisfied by any local record type carrying sync metadata.
// model.SyncMeta provides the Meta method, so *model.Task and *model.Note
// qualify by embedding.
type Record interface {
	Meta() *model.SyncMeta
}

// LocalCollection is the reconciler's view of one collection in the
// local store.
type LocalCollection[R Record] interface {
	// List returns a complete snapshot of the collection.
	List(ctx context.Context) ([]R, error)

	// Materialize inserts a record pulled from the remote side. The
	// record arrives linked and synced.
	Materialize(ctx context.Context, rec R) (int64, error)

	// Overwrite replaces an existing record's payload and timestamps
	// with the remote copy and marks it synced.
	Overwrite(ctx context.Context, rec R) error

	// MarkSynced attaches a remote id (when non-empty) and records a
	// successful reconciliation without touching the payload.
	MarkSynced(ctx context.Context, localID int64, remoteID string, at time.Time) error
}

// RemoteCollection is the reconciler's view of one collection on the
// remote backend. FullList must drain server-side pagination and return
// the complete set.
type RemoteCollection[R Record] interface {
	FullList(ctx context.Context) ([]R, error)

	// Create uploads a new record and returns the server-assigned id.
	Create(ctx context.Context, rec R) (string, error)

	// Update overwrites the remote record identified by rec's remote id.
	Update(ctx context.Context, rec R) error
}

// Collection is one reconcilable collection as the orchestrator sees it:
// a name for logging and a Run that fetches both sides and merges them.
// A Run error is a per-collection failure; it never aborts the other
// collections.
type Collection interface {
	Name() string
	Run(ctx context.Context) (*Outcome, error)
}
