package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeQuerier struct {
	name string
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestQuerierFromContext_Empty(t *testing.T) {
	if q := QuerierFromContext(context.Background()); q != nil {
		t.Errorf("expected nil querier from empty context, got %v", q)
	}
}

func TestWithQuerier_RoundTrip(t *testing.T) {
	q := &fakeQuerier{name: "tx"}
	ctx := WithQuerier(context.Background(), q)

	got := QuerierFromContext(ctx)
	if got != q {
		t.Errorf("expected the querier bound to context, got %v", got)
	}
}

func TestWithQuerier_InnerOverridesOuter(t *testing.T) {
	outer := &fakeQuerier{name: "pool"}
	inner := &fakeQuerier{name: "tx"}

	ctx := WithQuerier(context.Background(), outer)
	ctx = WithQuerier(ctx, inner)

	got, ok := QuerierFromContext(ctx).(*fakeQuerier)
	if !ok || got.name != "tx" {
		t.Errorf("expected inner querier to shadow outer, got %v", got)
	}
}
