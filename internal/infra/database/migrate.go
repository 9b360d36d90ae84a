package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const profilesMigration = `
CREATE TABLE IF NOT EXISTS users (
    id text PRIMARY KEY,
    email text NOT NULL,
    full_name text NOT NULL,
    avatar_url text,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS users_email_lower_idx
ON users (LOWER(email));
`

// Execer is satisfied by pgxpool.Pool, pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Migrate creates the profiles table when it does not exist.
func Migrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, profilesMigration); err != nil {
		return fmt.Errorf("apply profiles migration: %w", err)
	}
	return nil
}
