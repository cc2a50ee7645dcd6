package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RegisteredGroup is one VRChat group registered to a Discord guild.
type RegisteredGroup struct {
	GuildID     string
	GroupID     string
	Name        string
	ShortCode   string
	Description string
	OwnerID     string
	IsDefault   bool
}

// ErrNotRegistered is returned when a guild has no matching registry entry.
var ErrNotRegistered = errors.New("group not registered for this guild")

// GroupRegistry stores per-guild group registrations.
type GroupRegistry struct {
	db *sql.DB
}

// NewGroupRegistry wraps an open database handle.
func NewGroupRegistry(db *sql.DB) *GroupRegistry { return &GroupRegistry{db: db} }

// Add upserts a group registration for a guild.
func (r *GroupRegistry) Add(ctx context.Context, g RegisteredGroup) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO guild_groups (guild_id, group_id, name, short_code, description, owner_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (guild_id, group_id) DO UPDATE
		SET name=EXCLUDED.name, short_code=EXCLUDED.short_code,
		    description=EXCLUDED.description, owner_id=EXCLUDED.owner_id, updated_at=NOW()`,
		g.GuildID, g.GroupID, g.Name, g.ShortCode, g.Description, g.OwnerID)
	if err != nil {
		return fmt.Errorf("register group: %w", err)
	}
	return nil
}

// Remove deletes a registration. Removing the default clears the default.
func (r *GroupRegistry) Remove(ctx context.Context, guildID, groupID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM guild_groups WHERE guild_id=$1 AND group_id=$2`, guildID, groupID)
	if err != nil {
		return fmt.Errorf("remove group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotRegistered
	}
	return nil
}

// List returns all groups registered to a guild.
func (r *GroupRegistry) List(ctx context.Context, guildID string) ([]RegisteredGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT guild_id, group_id, COALESCE(name,''), COALESCE(short_code,''),
		       COALESCE(description,''), COALESCE(owner_id,''), is_default
		FROM guild_groups WHERE guild_id=$1 ORDER BY created_at`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()
	var out []RegisteredGroup
	for rows.Next() {
		var g RegisteredGroup
		if err := rows.Scan(&g.GuildID, &g.GroupID, &g.Name, &g.ShortCode, &g.Description, &g.OwnerID, &g.IsDefault); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetDefault marks one registered group as the guild's default target.
func (r *GroupRegistry) SetDefault(ctx context.Context, guildID, groupID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `UPDATE guild_groups SET is_default=FALSE WHERE guild_id=$1`, guildID); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE guild_groups SET is_default=TRUE, updated_at=NOW() WHERE guild_id=$1 AND group_id=$2`, guildID, groupID)
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotRegistered
	}
	return tx.Commit()
}

// Default returns the guild's default group, or ErrNotRegistered.
func (r *GroupRegistry) Default(ctx context.Context, guildID string) (RegisteredGroup, error) {
	var g RegisteredGroup
	err := r.db.QueryRowContext(ctx, `
		SELECT guild_id, group_id, COALESCE(name,''), COALESCE(short_code,''),
		       COALESCE(description,''), COALESCE(owner_id,''), is_default
		FROM guild_groups WHERE guild_id=$1 AND is_default`, guildID).
		Scan(&g.GuildID, &g.GroupID, &g.Name, &g.ShortCode, &g.Description, &g.OwnerID, &g.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotRegistered
	}
	if err != nil {
		return g, fmt.Errorf("default group: %w", err)
	}
	return g, nil
}
