// Package database provides the connection bootstrap and the narrow query
// interface the pipeline components are written against.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rliim/cmimport/internal/config"
)

// DBTX is the execute/query surface shared by *pgxpool.Pool, *pgx.Conn and
// pgx.Tx. Components take a DBTX so they run the same against a pool, a
// single connection, or inside a transaction (and tests can supply fakes).
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner is a DBTX that can open a transaction. pgx.Tx also satisfies it:
// beginning on a transaction opens a savepoint, and Commit/Rollback on the
// nested transaction release or roll back to that savepoint.
type Beginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a connection pool against the configured kiosk database and
// verifies that the server really serves the expected database.
func Connect(ctx context.Context, kiosk *config.KioskConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(kiosk.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	// The importer is a single-writer batch process.
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	var current string
	if err := pool.QueryRow(ctx, "select current_database()").Scan(&current); err != nil {
		pool.Close()
		return nil, fmt.Errorf("querying current database: %w", err)
	}
	if current != kiosk.DatabaseName {
		pool.Close()
		return nil, fmt.Errorf("connected to database %q, expected %q", current, kiosk.DatabaseName)
	}

	return pool, nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505), the signal for a duplicate natural key in
// staging.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
