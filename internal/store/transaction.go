package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// TxFn is the body of a transaction. Returning nil commits.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn in one transaction on db. Task updates use it so
// the owner check and the write see the same row, user registration so the
// uniqueness checks and the insert do, and the search locker to scope its
// advisory lock. An error from fn rolls back and is returned unchanged. A
// panic rolls back and is re-raised.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContextOrDefault(ctx, slog.Default())

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		p := recover()
		rbErr := tx.Rollback()
		switch {
		case rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone):
			log.Error("failed to roll back transaction",
				slog.String("error", rbErr.Error()),
				slog.Any("panic", p))
			if p == nil {
				err = fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
			}
		case p != nil:
			log.Error("rolled back transaction after panic", slog.Any("panic", p))
		default:
			log.Debug("rolled back transaction", slog.String("error", err.Error()))
		}
		if p != nil {
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	done = true
	if err = tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
	}
	return nil
}
