package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ktsubaki/vrc-group-bot/db"
	"github.com/ktsubaki/vrc-group-bot/testutil"
)

func TestRegistryLifecycle(t *testing.T) {
	database := testutil.SetupTestDB(t)
	reg := db.NewGroupRegistry(database)
	ctx := context.Background()

	guild := "guild-12345"
	if _, err := database.Exec(`DELETE FROM guild_groups WHERE guild_id=$1`, guild); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if err := reg.Add(ctx, db.RegisteredGroup{GuildID: guild, GroupID: "grp_a", Name: "Alpha"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Add(ctx, db.RegisteredGroup{GuildID: guild, GroupID: "grp_b", Name: "Beta"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Re-adding updates in place.
	if err := reg.Add(ctx, db.RegisteredGroup{GuildID: guild, GroupID: "grp_a", Name: "Alpha Renamed"}); err != nil {
		t.Fatalf("Add upsert: %v", err)
	}

	groups, err := reg.List(ctx, guild)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("List len = %d, want 2", len(groups))
	}
	if groups[0].Name != "Alpha Renamed" {
		t.Errorf("upsert name = %q, want Alpha Renamed", groups[0].Name)
	}

	if _, err := reg.Default(ctx, guild); !errors.Is(err, db.ErrNotRegistered) {
		t.Errorf("Default before SetDefault: err = %v, want ErrNotRegistered", err)
	}
	if err := reg.SetDefault(ctx, guild, "grp_b"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	def, err := reg.Default(ctx, guild)
	if err != nil || def.GroupID != "grp_b" {
		t.Errorf("Default = (%+v, %v), want grp_b", def, err)
	}
	// Moving the default.
	if err := reg.SetDefault(ctx, guild, "grp_a"); err != nil {
		t.Fatalf("SetDefault move: %v", err)
	}
	def, _ = reg.Default(ctx, guild)
	if def.GroupID != "grp_a" {
		t.Errorf("moved default = %q, want grp_a", def.GroupID)
	}

	if err := reg.SetDefault(ctx, guild, "grp_missing"); !errors.Is(err, db.ErrNotRegistered) {
		t.Errorf("SetDefault missing: err = %v, want ErrNotRegistered", err)
	}
	if err := reg.Remove(ctx, guild, "grp_a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := reg.Remove(ctx, guild, "grp_a"); !errors.Is(err, db.ErrNotRegistered) {
		t.Errorf("Remove twice: err = %v, want ErrNotRegistered", err)
	}
}
