package postgres

import (
	"context"
	"fmt"

	"github.com/landcrawl/landcrawl/internal/store"
)

// txKey marks a context as already running inside this adapter's
// transaction, so a nested WithTx call flattens onto the outer one instead
// of opening a second transaction (which pgx does not support nesting).
type txKey struct{}

// WithTx runs fn inside a single Postgres transaction. If ctx already
// carries an open transaction from an enclosing WithTx call, fn runs
// against that same transaction instead of starting a new one.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if existing, ok := ctx.Value(txKey{}).(*Store); ok {
		return fn(ctx, existing)
	}

	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	scoped := &Store{pool: s.pool, q: pgTx, logger: s.logger}
	ctx = context.WithValue(ctx, txKey{}, scoped)

	if err := fn(ctx, scoped); err != nil {
		if rerr := pgTx.Rollback(ctx); rerr != nil {
			s.logger.Warn().Err(rerr).Msg("rollback failed after transaction error")
		}

		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
