// Package search maintains the full-text projection of tasks.
//
// The projection is eventually consistent with the task store. Task writes
// emit events; Syncer turns each one into a persisted reindex job, and the job
// reloads the task from the store and upserts or deletes its index row. A
// search issued right after a write may therefore miss that write for as
// long as the job takes to run. Because every job copies current state
// rather than applying a delta, jobs can run twice or out of order and the
// index still converges on the store. Jobs for the same task hold a
// TaskLocker while they read and write, so an older read is never written
// after a newer one.
//
// Reconciler covers the remaining gap: a write whose event was lost before
// its job was persisted. It periodically compares the store with the index
// and submits jobs for rows that are missing, stale or orphaned.
package search
