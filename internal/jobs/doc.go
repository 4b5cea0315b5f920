// Package jobs runs persisted background jobs.
//
// A job is saved before it is queued, so a crash, a full queue or a failed
// attempt never loses it: the runner recovers unfinished jobs at start and a
// monitor periodically re-queues jobs left pending or stuck in processing.
// Jobs must therefore be idempotent.
package jobs
