// Package postgres stores solve history in PostgreSQL. It is optional: the
// service runs fully without it, and history recording is best-effort.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// Config holds connection settings for the history database.
type Config struct {
	// URL is a Postgres connection string.
	URL string
	// MaxConnections bounds the pgx pool. Defaults to 10.
	MaxConnections int32
	// ConnectTimeout bounds the initial connection attempt. Defaults to 30s.
	ConnectTimeout time.Duration
	// MigrationsPath is a golang-migrate source URL. Defaults to
	// "file://migrations".
	MigrationsPath string
}

// DB is a pooled connection to the history database.
type DB struct {
	pool *pgxpool.Pool
	cfg  Config
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres: connection URL is required")
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 10
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://migrations"
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse connection URL: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConnections
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &DB{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// MigrateUp applies all pending schema migrations from the configured source.
// The migration driver runs over database/sql with lib/pq, separate from the
// pgx pool used for queries.
func (db *DB) MigrateUp() error {
	sqlDB, err := sql.Open("postgres", db.cfg.URL)
	if err != nil {
		return fmt.Errorf("postgres: open migration connection: %w", err)
	}
	defer sqlDB.Close()

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("postgres: create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(db.cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("postgres: create migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("postgres: apply migrations: %w", err)
	}
	return nil
}
