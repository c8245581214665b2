package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prefeitura-digital/prompt-router/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Provider catalog table
		CREATE TABLE IF NOT EXISTS providers (
			id VARCHAR(100) PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL,
			family VARCHAR(32) NOT NULL,
			endpoint VARCHAR(255) NOT NULL,
			credential TEXT NOT NULL DEFAULT '',
			max_tokens INTEGER NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			priority INTEGER NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT FALSE,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Append-only prompt history table
		CREATE TABLE IF NOT EXISTS prompt_history (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			user_id VARCHAR(100) NOT NULL,
			prompt TEXT NOT NULL,
			response TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			provider_used VARCHAR(100) NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			metadata JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_prompt_history_user
			ON prompt_history(user_id, timestamp DESC);

		-- Saved prompt templates table
		CREATE TABLE IF NOT EXISTS prompt_templates (
			id UUID PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			created_by VARCHAR(100) NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_prompt_templates_owner
			ON prompt_templates(created_by, created_at DESC);

		-- Carrier users table
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(100) PRIMARY KEY,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(32) NOT NULL DEFAULT 'user',
			department VARCHAR(100) NOT NULL DEFAULT '',
			preferred_model VARCHAR(100) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized")
	return nil
}
