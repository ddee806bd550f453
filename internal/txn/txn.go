package txn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

// ErrLockTimeout is returned when a bounded lock wait elapses. The whole
// operation has been rolled back; nothing was written and a retry is safe.
var ErrLockTimeout = apperror.Transient("resource temporarily locked, try again")

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
// Repositories issue all statements through it, so the same repository code
// runs inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Manager runs a closure inside a single transaction. Every logical
// operation in the core (ledger mutation, booking status update, operation
// log append) happens inside exactly one InTx call so it commits fully or
// not at all.
type Manager interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgxManager is the production Manager backed by a pgx connection pool.
//
// Lock discipline: callers lock every row they will touch or validate with
// SELECT ... ORDER BY id FOR UPDATE, bookings before ledger entries, both in
// ascending id order. Because every call site locks in that one global
// order, no two transactions can form a circular wait. The lock_timeout set
// here bounds the wait; hitting it maps to ErrLockTimeout.
type PgxManager struct {
	pool     *pgxpool.Pool
	lockWait time.Duration
}

func NewPgxManager(pool *pgxpool.Pool, lockWait time.Duration) *PgxManager {
	return &PgxManager{pool: pool, lockWait: lockWait}
}

func (m *PgxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		// Already inside a transaction: join it instead of nesting.
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockWait.Milliseconds())
	if _, err := tx.Exec(ctx, timeout); err != nil {
		return fmt.Errorf("set lock_timeout failed: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return MapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", MapError(err))
	}
	return nil
}

// TxFromContext returns the transaction carried in ctx, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// QuerierFromContext returns the in-flight transaction if the context
// carries one, otherwise the given fallback (normally the pool).
func QuerierFromContext(ctx context.Context, fallback Querier) Querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// TrySweepMarker takes the per-hotel mutual-exclusion marker for a named
// sweep via a transaction-scoped advisory lock. It returns false when
// another instance of the same sweep already holds the marker for this
// hotel, in which case the caller must do nothing this cycle. Must run
// inside a transaction.
func TrySweepMarker(ctx context.Context, sweep, hotelID string) (bool, error) {
	tx := TxFromContext(ctx)
	if tx == nil {
		return false, fmt.Errorf("sweep marker requires an open transaction")
	}

	var got bool
	err := tx.QueryRow(ctx,
		"SELECT pg_try_advisory_xact_lock(hashtext($1))",
		sweep+":"+hotelID,
	).Scan(&got)
	if err != nil {
		return false, fmt.Errorf("acquire sweep marker failed: %w", err)
	}
	return got, nil
}

// MapError converts low-level pgx errors into taxonomy errors. A lock wait
// that hit lock_timeout becomes the retryable ErrLockTimeout; everything
// else passes through.
func MapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.LockNotAvailable {
		return ErrLockTimeout
	}
	return err
}

// OrderedIDs returns the ids sorted ascending with duplicates removed. All
// lock acquisition across the system goes through this ordering so that no
// two operations can deadlock against each other.
func OrderedIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
