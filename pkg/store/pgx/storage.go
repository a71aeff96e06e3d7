// Package pgx implements the storage interface on PostgreSQL. All writes are
// merge/upserts keyed on the natural identity of each record, so concurrent
// identical calls converge on one row.
package pgx

import (
	"context"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/traceguard/backend/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

var _ store.Storage = (*Storage)(nil)

// Storage implements store.Storage on a pgx connection or pool.
type Storage struct {
	conn pgxIConn
}

// NewStorageWithConnection creates a Storage on an existing connection or
// pool. The caller owns the connection lifecycle.
func NewStorageWithConnection(conn pgxIConn) *Storage {
	return &Storage{conn: conn}
}

// mapErr translates driver-level not-found into the store sentinel.
func mapErr(err error) error {
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
