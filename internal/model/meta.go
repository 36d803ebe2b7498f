// Package model defines the record types shared by the local store, the
// remote client, and the sync engine.
package model

import "time"

// SyncMeta carries the synchronization bookkeeping every record has,
// independent of its payload. Task and Note embed it.
//
// A record is "linked" when RemoteID is non-empty: it is known to
// correspond to a specific record on the remote side. An empty RemoteID
// means the record is local-only and pending upload.
type SyncMeta struct {
	// LocalID is assigned by the local store on creation and is stable
	// for the record's local lifetime.
	LocalID int64

	// RemoteID is the opaque server-assigned identifier. Empty until the
	// record has been uploaded or was pulled from the remote.
	RemoteID string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Synced is true only when the local copy is known identical to its
	// remote counterpart as of LastSyncAt. Any local payload mutation
	// clears it.
	Synced bool

	// LastSyncAt is the time of the last reconciliation pass that touched
	// this record. Nil for records no pass has ever touched.
	LastSyncAt *time.Time
}

// Meta returns the embedded sync bookkeeping. It exists so that generic
// code can constrain on "has sync metadata" without caring whether the
// record is a task or a note.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// Linked reports whether the record corresponds to a known remote record.
func (m *SyncMeta) Linked() bool { return m.RemoteID != "" }

// MarkSynced records a successful reconciliation touching this record.
func (m *SyncMeta) MarkSynced(remoteID string, at time.Time) {
	if remoteID != "" {
		m.RemoteID = remoteID
	}
	m.Synced = true
	t := at
	m.LastSyncAt = &t
}

// Touch refreshes UpdatedAt and clears Synced. Every local payload
// mutation goes through this; UpdatedAt never moves backwards.
func (m *SyncMeta) Touch(now time.Time) {
	if now.After(m.UpdatedAt) {
		m.UpdatedAt = now
	}
	m.Synced = false
}
