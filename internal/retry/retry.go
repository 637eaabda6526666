// Package retry provides the "retry forever on lock contention" loop used
// by the Delta Engine's trigger install and the Swap Coordinator's lock
// acquisition (spec sections 4.3, 4.6): back off a fixed interval and try
// again, logging each attempt, until the operation succeeds or the
// context is cancelled.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// LockWait is the fixed delay between lock-acquisition attempts, matching
// the 20-second sleep in original_source/pg_rebuild_table/main.py.
const LockWait = 20 * time.Second

// ErrKind classifies an error the way spec section 7's table does, so the
// CLI layer can decide whether a failure is a fatal abort or a logged,
// exit-0 no-op.
type ErrKind int

const (
	// Other is any structural error: abort, surface to the caller, exit
	// non-zero. The zero value, so an unclassified error defaults fatal.
	Other ErrKind = iota
	// LockNotAvailable is a lock_timeout abort (SQLSTATE 55P03); handled
	// entirely inside Forever's retry loop, never surfaced to the CLI.
	LockNotAvailable
	// PreconditionFailed is "no PK, or is partition parent": log a
	// warning and return without touching the table.
	PreconditionFailed
	// ConfigInvalid is a bad CLI option combination, e.g. set_column_order
	// naming the wrong set of columns: log an error and return without
	// touching the table.
	ConfigInvalid
)

// Error wraps an underlying cause with an ErrKind so callers can classify
// it without string-matching the message.
type Error struct {
	Kind ErrKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Precondition wraps err as a PreconditionFailed sentinel (spec section 7:
// "no PK, or is partition parent" -> log warning, return without DDL).
func Precondition(err error) error { return &Error{Kind: PreconditionFailed, Err: err} }

// Config wraps err as a ConfigInvalid sentinel (spec section 7:
// "set_column_order length mismatch" -> log error, return without DDL).
func Config(err error) error { return &Error{Kind: ConfigInvalid, Err: err} }

// KindOf classifies err per spec section 7's table. An error not produced
// by Precondition/Config classifies as LockNotAvailable when it is a
// SQLSTATE 55P03 Postgres error, and as Other otherwise.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if IsLockNotAvailable(err) {
		return LockNotAvailable
	}
	return Other
}

// IsLockNotAvailable reports whether err is a Postgres lock_timeout abort
// (SQLSTATE 55P03), the only error class this package's callers retry on.
// Any other error is treated as permanent.
func IsLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "55P03"
	}
	return false
}

// Forever runs op, retrying with a constant LockWait backoff as long as
// op's error satisfies retryable. It stops and returns the first
// non-retryable error, or ctx.Err() if ctx is cancelled mid-wait.
func Forever(ctx context.Context, log *zap.Logger, retryable func(error) bool, op func(context.Context) error) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(LockWait), ctx)
	attempt := 0
	for {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		log.Warn("operation blocked, retrying", zap.Int("attempt", attempt), zap.Error(err), zap.Duration("wait", LockWait))
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
