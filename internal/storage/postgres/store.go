package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-checkout/internal/domain/order"
)

var _ order.Store = (*Store)(nil)

// Store implements order.Store on a pgx pool. Each InTx call runs in one
// READ COMMITTED transaction; order rows and inventory rows are locked with
// SELECT ... FOR UPDATE.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn in a transaction, committing only if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(mapError(err), "begin tx")
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	if err := fn(ctx, &tx{tx: pgTx}); err != nil {
		return mapError(err)
	}
	if err := pgTx.Commit(ctx); err != nil {
		return errors.Wrap(mapError(err), "commit")
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// conflictError marks a database error caused by concurrent access.
type conflictError struct {
	err error
}

func (e *conflictError) Error() string { return "concurrent update: " + e.err.Error() }

func (e *conflictError) Unwrap() error { return e.err }

func (e *conflictError) Is(target error) bool { return target == order.ErrConflict }

// mapError tags serialization failures, deadlocks, lock timeouts and
// unique violations as conflicts. Callers decide whether to retry.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure,
		pgerrcode.DeadlockDetected,
		pgerrcode.LockNotAvailable,
		pgerrcode.UniqueViolation:
		return &conflictError{err: err}
	}
	return err
}

// tx implements order.Tx on a pgx transaction.
type tx struct {
	tx pgx.Tx
}
