package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates a pgx connection pool from the DSN and verifies it with a
// ping. Both postgres:// and postgresql:// prefixes are accepted.
func Connect(ctx context.Context, dsn string, opts ...func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if cfg.MaxConns == 0 {
		cfg.MaxConns = 8
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.MaxConnLifetime == 0 {
		cfg.MaxConnLifetime = time.Hour
	}
	if cfg.HealthCheckPeriod == 0 {
		cfg.HealthCheckPeriod = time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// NewPoolFromEnv reads the DSN from the DB_URL environment variable.
func NewPoolFromEnv(ctx context.Context, opts ...func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	dsn := strings.TrimSpace(os.Getenv("DB_URL"))
	if dsn == "" {
		return nil, errors.New("postgres: DB_URL environment variable is not set")
	}
	return Connect(ctx, dsn, opts...)
}

// schemaDDL is idempotent; EnsureSchema runs it on every boot.
const schemaDDL = `
CREATE SCHEMA IF NOT EXISTS chat;

CREATE SEQUENCE IF NOT EXISTS chat.message_seq;

CREATE TABLE IF NOT EXISTS chat.room (
	room_code              text PRIMARY KEY,
	member_id              bigint NOT NULL,
	member_name            text NOT NULL DEFAULT '',
	expo_id                bigint NOT NULL DEFAULT 0,
	room_title             text NOT NULL DEFAULT '',
	state                  text NOT NULL DEFAULT 'AI_ACTIVE',
	assigned_admin         text NOT NULL DEFAULT '',
	admin_display_name     text NOT NULL DEFAULT '',
	last_admin_activity_at timestamptz,
	handoff_requested_at   timestamptz,
	watermarks             jsonb NOT NULL DEFAULT '{}'::jsonb,
	last_message_preview   text NOT NULL DEFAULT '',
	last_message_at        timestamptz,
	is_active              boolean NOT NULL DEFAULT true,
	created_at             timestamptz NOT NULL DEFAULT now(),
	updated_at             timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS room_member_active_idx
	ON chat.room (member_id, is_active, last_message_at DESC);
CREATE INDEX IF NOT EXISTS room_expo_active_idx
	ON chat.room (expo_id, is_active, last_message_at DESC);
CREATE INDEX IF NOT EXISTS room_idle_admin_idx
	ON chat.room (last_admin_activity_at) WHERE assigned_admin <> '';

CREATE TABLE IF NOT EXISTS chat.message (
	id            uuid PRIMARY KEY,
	room_code     text NOT NULL REFERENCES chat.room (room_code),
	seq           bigint NOT NULL UNIQUE,
	sender_role   text NOT NULL,
	sender_id     bigint NOT NULL,
	sender_name   text NOT NULL DEFAULT '',
	content       text NOT NULL,
	unread_marker integer NOT NULL DEFAULT 0,
	sent_at       timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS message_room_seq_idx
	ON chat.message (room_code, seq DESC);
CREATE INDEX IF NOT EXISTS message_room_sender_seq_idx
	ON chat.message (room_code, sender_role, seq);
`

// EnsureSchema creates the chat schema, sequence, tables and indexes if they
// do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}
