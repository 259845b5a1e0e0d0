package database

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "tixgate/pkg/app_errors"
)

// TxStarter is the slice of pgxpool.Pool the services need to open
// transactions. Tests substitute a fake so service logic runs without a
// database.
type TxStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// RetryConfig bounds the conflict-retry loop around a transactional unit.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// IsSerializationFailure reports whether err is the storage layer signalling
// that two transactions touched the same rows (serialization failure or
// deadlock). These are benign under contention and worth retrying.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// WithTxRetry runs fn inside a transaction, committing on nil error. On a
// serialization failure the whole transaction is retried with exponential
// backoff plus jitter, up to cfg.MaxRetries attempts; exhaustion surfaces
// ErrConflict. Any other error aborts immediately and is returned as-is.
func WithTxRetry(ctx context.Context, starter TxStarter, cfg RetryConfig, fn func(tx pgx.Tx) error) error {
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int64N(int64(delay) + 1))
			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		err = runInTx(ctx, starter, fn)
		if err == nil {
			return nil
		}
		if !IsSerializationFailure(err) {
			return err
		}
	}

	return apperrors.ErrConflict
}

func runInTx(ctx context.Context, starter TxStarter, fn func(tx pgx.Tx) error) error {
	tx, err := starter.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
