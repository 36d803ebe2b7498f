// Package sync implements the bidirectional synchronization engine that
// reconciles the local store with the remote backend.
//
// # Architecture
//
// Three pieces cooperate:
//
//   - Reconciler: merges the full local and remote snapshots of one
//     collection under last-write-wins by updated_at. Individual record
//     failures are collected, never fatal to the batch.
//
//   - Orchestrator: owns the sync state machine (Idle, Syncing, Error),
//     drives manual and periodic sync attempts, aggregates per-collection
//     outcomes, and pushes status snapshots to subscribers.
//
//   - Prober: the gating check run before any collection is touched.
//     Sync disabled, missing/invalid auth, or an unreachable remote all
//     resolve to "offline" plus a human-readable reason; the prober never
//     returns an error.
//
// # Failure model
//
// Failures fall into three tiers with different blast radii:
//
//   - Gating failures abort the whole attempt and surface as the Error
//     state.
//   - Per-collection failures (the remote collection is missing, a fetch
//     fails) are logged and skipped; the other collections still sync and
//     the attempt ends Idle.
//   - Per-record failures are recorded in the collection's Outcome and
//     the pass continues with the next record.
//
// The engine is deliberately non-transactional: a write failure after a
// partial apply can leave the two stores transiently inconsistent, and
// the next pass reconciles them again. Deletions are not propagated to
// the remote side at all; a locally deleted record's remote counterpart
// persists (it is never resurrected locally either, since reconciliation
// only merges existing sets).
package sync
