package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// DB wraps the sql connection pool
type DB struct {
	*sql.DB
}

// New opens a connection pool to Postgres and runs startup migrations
func New(databaseURL string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// migrations is applied in order at startup. Schema evolution is
// additive-only: new columns are added with ADD COLUMN IF NOT EXISTS so
// older rows stay valid, nothing is dropped or retyped.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		name TEXT,
		email_verified BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS sources (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id UUID NOT NULL REFERENCES projects(id),
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT,
		url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS topics (
		project_id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		topics_json JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		conversation_id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		user_id TEXT NOT NULL,
		project_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS chat_messages (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(conversation_id),
		message_type TEXT NOT NULL,
		content TEXT NOT NULL,
		user_id TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS interactive_content (
		interact_id UUID PRIMARY KEY,
		project_id UUID NOT NULL,
		content_type TEXT NOT NULL,
		content_json JSONB NOT NULL,
		topics_used JSONB NOT NULL,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS interactive_history (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id UUID NOT NULL,
		content_type TEXT NOT NULL,
		topics JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		embedding vector(1536),
		conversation_id UUID,
		project_id UUID,
		topic TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS oidc_config (
		id UUID PRIMARY KEY,
		provider TEXT UNIQUE NOT NULL,
		issuer TEXT NOT NULL,
		domain TEXT,
		client_id TEXT NOT NULL,
		client_secret TEXT,
		redirect_uri TEXT NOT NULL,
		jwks_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS ratelimit_config (
		config_key TEXT PRIMARY KEY,
		rate TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sources_project ON sources(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON chat_messages(conversation_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_history_user_project ON interactive_history(user_id, project_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_conversation ON chunks(conversation_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops)`,

	// Columns added after the initial schema shipped. Forward-only: older
	// rows get null defaults.
	`ALTER TABLE sources ADD COLUMN IF NOT EXISTS url TEXT`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS last_login TIMESTAMPTZ`,
	`ALTER TABLE conversations ADD COLUMN IF NOT EXISTS project_id UUID`,
}

// Migrate applies the additive startup migrations
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
