// Package sqlite backs the multipart registry with modernc.org/sqlite, a
// pure-Go SQLite driver, for single-binary deployments that would rather not
// stand up a database server just to survive their own restarts.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds SQLite connection settings tuned for a single-writer
// crash-recovery table rather than a high-throughput workload.
type Config struct {
	Path        string
	BusyTimeout int
	JournalMode string
}

// DefaultConfig returns sensible defaults for dbPath, or ":memory:" for tests.
func DefaultConfig(dbPath string) Config {
	return Config{Path: dbPath, BusyTimeout: 5000, JournalMode: "WAL"}
}

// DB wraps the raw *sql.DB handle plus the migration bookkeeping the store
// needs before it can serve queries.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to cfg.Path and applies the registry's schema migration.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d&_foreign_keys=ON",
		cfg.Path, cfg.JournalMode, cfg.BusyTimeout)

	sqlDB, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("registry/sqlite: open: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("registry/sqlite: ping: %w", err)
	}

	db := &DB{db: sqlDB, logger: logger}
	if err := db.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logger.Info().Str("path", cfg.Path).Msg("registry: opened sqlite store")
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	migration, err := migrationsFS.ReadFile("migrations/000001_init.up.sql")
	if err != nil {
		return fmt.Errorf("registry/sqlite: reading embedded migration: %w", err)
	}
	if _, err := db.db.ExecContext(ctx, string(migration)); err != nil {
		return fmt.Errorf("registry/sqlite: applying migration: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}
