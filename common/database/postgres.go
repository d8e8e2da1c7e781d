// Package database opens the shared Postgres pool.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"floodwatch/common/config"

	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// NewPostgresDB opens a pool and verifies it with a ping bounded by ctx and
// pingTimeout.
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	Configure(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Describe(), err)
	}
	return db, nil
}

// Configure applies pool limits from cfg.
func Configure(db *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
}
