// Package postgres backs the multipart registry with jackc/pgx for
// deployments that already run a shared PostgreSQL instance and would rather
// have every process share one registry table than reconcile several SQLite
// files.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps a pgx connection pool scoped to the registry table.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Open connects to dsn and ensures the registry table exists.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("registry/postgres: parse dsn: %w", err)
	}
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("registry/postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("registry/postgres: ping: %w", err)
	}

	db := &DB{Pool: pool, logger: logger}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().Msg("registry: opened postgres store")
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS multipart_registry (
			upload_id  TEXT PRIMARY KEY,
			bucket     TEXT NOT NULL,
			key        TEXT NOT NULL,
			part_count INTEGER NOT NULL DEFAULT 0,
			state      TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_multipart_registry_state ON multipart_registry(state);
	`)
	if err != nil {
		return fmt.Errorf("registry/postgres: migrate: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}
