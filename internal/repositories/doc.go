// Package repositories implements SQLite persistence for recall history.
//
// [RecallRunRepository] stores each finished run with the artists it recalled and the tracks it
// resolved. It implements models.Repository[*models.RecallRun], the engine's RunRecorder, and the
// RunSource used by bulk export.
//
// Runs are soft-deleted via deleted_at timestamps and excluded from queries by default. Child rows
// are removed by ON DELETE CASCADE only when a run is purged.
//
// Sequence numbers provide stable, human-readable ordering (e.g. run #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
