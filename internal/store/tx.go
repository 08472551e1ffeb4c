// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"backdrop/internal/metrics"
)

var (
	// ErrNotFound is returned when a theme or asset does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a version-checked write lost a race and
	// the retries were exhausted.
	ErrConflict = errors.New("transaction conflict")
)

const (
	// TxAttempts is how many times a conflicting transaction is run.
	TxAttempts = 5

	txBaseDelay = 20 * time.Millisecond
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunInTx runs fn inside a repeatable-read transaction. When fn or the
// commit fails with a conflict (a stale version or a PostgreSQL
// serialization failure) the whole closure is rolled back and run again,
// so fn must re-read everything it writes.
func RunInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	return retryConflicts(ctx, TxAttempts, txBaseDelay, func() error {
		tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// retryConflicts calls fn until it succeeds, fails with a non-conflict
// error or runs out of attempts. Backoff doubles per attempt with full
// jitter.
func retryConflicts(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := base << (i - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(rand.N(delay) + 1):
			}
		}

		err = fn()
		if err == nil || !IsConflict(err) {
			return err
		}
		metrics.TxConflictsTotal.Inc()
		slog.Debug("transaction conflict, retrying", "attempt", i+1, "error", err)
	}
	if errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConflict, err)
}

// IsConflict reports whether err is a lost optimistic write, a
// serialization failure or a deadlock.
func IsConflict(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
