// Package postgres implements the repository interfaces on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new PostgreSQL connection pool
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// EnsureSchema creates the chat history tables if they do not exist.
// Called once at startup so a fresh database is usable immediately.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS chat_history (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			user_message_chars INTEGER NOT NULL DEFAULT 0,
			bot_response_chars INTEGER NOT NULL DEFAULT 0,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			retrieval_ms BIGINT NOT NULL DEFAULT 0,
			generation_ms BIGINT NOT NULL DEFAULT 0,
			total_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history (session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id UUID PRIMARY KEY,
			message_id UUID NOT NULL UNIQUE REFERENCES chat_history (id) ON DELETE CASCADE,
			rating TEXT NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
