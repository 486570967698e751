package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Accessor serializes access to the database with an advisory row lock
// simulated via compare-and-swap on the singleton _meta row, since
// modernc.org/sqlite (pure Go, no cgo) exposes no native advisory lock
// primitive. Grounded on the pack's beads storage.go RunInTransaction
// contract (BEGIN IMMEDIATE acquires the write lock before the first
// statement runs) plus the teacher's single-writer assumption in
// internal/db/store.go.
type Accessor struct {
	db *DB
}

// NewAccessor wraps db.
func NewAccessor(db *DB) *Accessor { return &Accessor{db: db} }

// LockTimeout is how long WithLock retries before giving up with
// cerrors.CodeLockTimeout (translated by the caller, not this package,
// to keep store free of the cerrors import cycle risk).
const LockTimeout = 7 * time.Second

// WithLock acquires the advisory lock row, runs fn, then releases it.
// Acquisition is a CAS loop: UPDATE _meta SET locked_by=? WHERE id=1 AND
// locked_by IS NULL, retried with backoff until LockTimeout elapses.
func (a *Accessor) WithLock(ctx context.Context, holder string, fn func(ctx context.Context) error) error {
	deadline := time.Now().Add(LockTimeout)
	backoff := 10 * time.Millisecond

	for {
		acquired, err := a.tryAcquire(ctx, holder)
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lock timeout: %q held by another caller", holder)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}

	defer a.release(ctx)
	return fn(ctx)
}

func (a *Accessor) tryAcquire(ctx context.Context, holder string) (bool, error) {
	res, err := a.db.ExecContext(ctx,
		`UPDATE _meta SET locked_by = ?, locked_at = ? WHERE id = 1 AND locked_by IS NULL`,
		holder, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return n == 1, nil
}

func (a *Accessor) release(ctx context.Context) {
	a.db.ExecContext(ctx, `UPDATE _meta SET locked_by = NULL, locked_at = NULL WHERE id = 1`)
}

// RunInTransaction runs fn inside a SQL transaction, committing on nil
// and rolling back on error or panic, matching the beads storage.go
// Transaction contract exactly.
func (a *Accessor) RunInTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}
