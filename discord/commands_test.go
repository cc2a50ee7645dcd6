package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestOptionHelpersTolerateMissingOptions(t *testing.T) {
	opts := optionMap(nil)
	if got := stringOpt(opts, "groupid"); got != "" {
		t.Errorf("stringOpt on missing option = %q, want empty", got)
	}
	if got := boolOpt(opts, "notification"); got {
		t.Errorf("boolOpt on missing option = true, want false")
	}
	if got := intOpt(opts, "contentstype"); got != 0 {
		t.Errorf("intOpt on missing option = %d, want 0", got)
	}
}

func TestCommandDefinitionsGroupIDPlacement(t *testing.T) {
	findCmd := func(cmds []*discordgo.ApplicationCommand, name string) *discordgo.ApplicationCommand {
		for _, c := range cmds {
			if c.Name == name {
				return c
			}
		}
		t.Fatalf("command %q not defined", name)
		return nil
	}

	// Without a registry the group id is required and must lead.
	cmds := commandDefinitions(false)
	for _, name := range []string{"postcontent", "createcalendar"} {
		opts := findCmd(cmds, name).Options
		if opts[0].Name != "groupid" || !opts[0].Required {
			t.Errorf("%s first option = %q (required=%v), want required groupid", name, opts[0].Name, opts[0].Required)
		}
	}

	// With a registry it becomes optional and must trail the required ones.
	cmds = commandDefinitions(true)
	for _, name := range []string{"postcontent", "createcalendar"} {
		opts := findCmd(cmds, name).Options
		last := opts[len(opts)-1]
		if last.Name != "groupid" || last.Required {
			t.Errorf("%s last option = %q (required=%v), want optional groupid", name, last.Name, last.Required)
		}
	}
	findCmd(cmds, "group")
}
