// Package postgres implements internal/store.Store on top of pgx/v5's
// connection pool, grounded on the teacher's internal/database.DB
// (pgxpool.Config tuning, DSN assembly, HealthCheck) and
// internal/database.Repository (raw-SQL query/scan CRUD).
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/store/migrations"
)

// DB wraps the connection pool and implements internal/store.Store.
type DB struct {
	Pool *pgxpool.Pool
	log  *logging.Logger
}

// New opens a connection pool from cfg, pings it, and returns the wrapped
// DB. Callers run Migrate separately so a process can choose to skip
// migrations against an already-provisioned database.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool, log: logging.WithComponent("store.postgres")}, nil
}

// Migrate runs every statement in internal/store/migrations in order.
func (db *DB) Migrate(ctx context.Context) error {
	db.log.Info("running database migrations", "count", len(migrations.Statements))
	for i, stmt := range migrations.Statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// HealthCheck satisfies store.Store.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close releases the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}
