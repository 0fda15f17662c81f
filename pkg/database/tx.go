package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TxBeginner starts sqlx transactions. *sqlx.DB satisfies it.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// RetryPolicy bounds how often a transaction body is replayed after a retryable failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// OnRetry is invoked before each replay with the attempt number that just failed.
	OnRetry func(attempt int, err error)
}

// IsRetryable reports whether err is a Postgres failure that a fresh transaction may not hit again.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return true
	}
	return false
}

// WithTx runs fn inside a transaction, committing on success and rolling back on error.
// Retryable failures replay fn in a new transaction up to policy.Attempts times.
func WithTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, policy RetryPolicy, fn func(tx *sqlx.Tx) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = runOnce(ctx, db, opts, fn)
		if lastErr == nil || !IsRetryable(lastErr) || attempt == attempts {
			return lastErr
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, lastErr)
		}
		if policy.Backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt) * policy.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("transaction retry aborted: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func runOnce(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
