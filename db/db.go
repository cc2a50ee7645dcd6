// Package db provides the optional Postgres-backed group registry: VRChat
// groups registered per Discord guild so commands can default to a known
// group instead of requiring a raw grp_ id every time. The registry is a
// convenience surface; when no DSN is configured the bot runs without it.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for the registry tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS guild_groups (
			id SERIAL PRIMARY KEY,
			guild_id TEXT NOT NULL,
			group_id TEXT NOT NULL,
			name TEXT,
			short_code TEXT,
			description TEXT,
			owner_id TEXT,
			is_default BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ,
			UNIQUE(guild_id, group_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_guild_groups_guild ON guild_groups(guild_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_guild_groups_default ON guild_groups(guild_id) WHERE is_default`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}
