// Package postgres implements order persistence on PostgreSQL via pgx.
package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/storelab/orders-api/db"
)

// DB is the pool surface the repository needs. It is satisfied by
// *pgxpool.Pool and by pgxmock's pool in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// RetryConfig bounds the startup connectivity probe. Exhausting the
// attempts is fatal to process startup.
type RetryConfig struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry probes 5 times with a fixed 2-second backoff.
var DefaultRetry = RetryConfig{Attempts: 5, Backoff: 2 * time.Second}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal
// support for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// Connect creates the pool and waits for the backing store to become
// reachable, pinging up to retry.Attempts times with a fixed backoff.
// It tolerates a not-yet-ready database at startup (e.g. a container
// still booting).
func Connect(ctx context.Context, databaseURL string, retry RetryConfig) (*pgxpool.Pool, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	lg := zctx.From(ctx)
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			return pool, nil
		}
		if attempt >= retry.Attempts {
			pool.Close()
			return nil, errors.Wrapf(err, "database unreachable after %d attempts", retry.Attempts)
		}
		lg.Warn("Database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", retry.Backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(retry.Backoff):
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		}
	}
}

// RunMigrations executes the embedded DDL schema.
func RunMigrations(ctx context.Context, pool DB) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// withinTx runs fn inside a transaction, committing on success and
// rolling back on error so no partial write is ever visible.
func withinTx(ctx context.Context, db DB, fn func(pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}
