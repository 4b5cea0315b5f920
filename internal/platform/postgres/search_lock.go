package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/search"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// AdvisoryTaskLocker implements search.TaskLocker with a transaction-scoped
// advisory lock, so reindexing of one task is serialized across every
// server process sharing the database.
type AdvisoryTaskLocker struct {
	db *sql.DB
}

var _ search.TaskLocker = (*AdvisoryTaskLocker)(nil)

// NewAdvisoryTaskLocker creates a locker on db.
func NewAdvisoryTaskLocker(db *sql.DB) *AdvisoryTaskLocker {
	if db == nil {
		panic("db cannot be nil")
	}
	return &AdvisoryTaskLocker{db: db}
}

// WithTaskLock runs fn while holding the lock for taskID. The lock is
// released when the surrounding transaction ends, even if the connection
// is lost. fn does its own queries; the lock transaction only holds the lock.
func (l *AdvisoryTaskLocker) WithTaskLock(ctx context.Context, taskID uuid.UUID, fn func(ctx context.Context) error) error {
	return store.RunInTransaction(ctx, l.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryKey(taskID)); err != nil {
			return fmt.Errorf("failed to lock task %s for reindexing: %w", taskID, MapError(err))
		}
		return fn(ctx)
	})
}

// advisoryKey folds a UUID into the 64-bit key space of advisory locks.
func advisoryKey(id uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(id[:8]) ^ binary.BigEndian.Uint64(id[8:]))
}
