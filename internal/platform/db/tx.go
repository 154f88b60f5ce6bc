package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const querierKey contextKey = "db_querier"

// Querier is the subset of pgx operations repositories need. It is satisfied
// by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx, so repository methods run
// against whichever is bound to the request context.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithQuerier returns a context carrying q. Repositories resolve it via
// QuerierFromContext, which lets a transaction started by WithTx flow through
// every repository call made inside the callback.
func WithQuerier(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, querierKey, q)
}

// QuerierFromContext retrieves the querier bound to ctx, or nil if none is set.
func QuerierFromContext(ctx context.Context) Querier {
	q, _ := ctx.Value(querierKey).(Querier)
	return q
}

// WithTx runs fn inside a single database transaction. The transaction is
// bound to the context passed to fn, so repository calls made through
// QuerierFromContext join it. The transaction commits when fn returns nil and
// rolls back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithQuerier(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
