package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the part of a pool needed to run migrations.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// migrations are idempotent and run in order on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            VARCHAR(36) PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		token      VARCHAR(36) PRIMARY KEY,
		user_id    VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id            VARCHAR(36) PRIMARY KEY,
		name          TEXT NOT NULL,
		venue_name    TEXT NOT NULL DEFAULT '',
		city          TEXT NOT NULL,
		state         TEXT NOT NULL,
		date          DATE NOT NULL,
		time          TEXT NOT NULL DEFAULT '',
		type          TEXT NOT NULL,
		genre         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		website       TEXT NOT NULL DEFAULT '',
		source        TEXT NOT NULL DEFAULT 'manual',
		created_by    VARCHAR(36) NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS events_date_idx ON events (date, created_at)`,
	`CREATE INDEX IF NOT EXISTS events_created_by_idx ON events (created_by)`,
	`CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db Execer) error {
	for i, m := range migrations {
		if _, err := db.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
