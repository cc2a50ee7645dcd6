package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ktsubaki/vrc-group-bot/bot"
	"github.com/ktsubaki/vrc-group-bot/db"
	"github.com/ktsubaki/vrc-group-bot/telemetry"
)

const (
	twoFactorModalID   = "email2fa_modal"
	twoFactorFieldID   = "email2fa_code"
	commandTimeout     = 60 * time.Second
	msgNoDefaultGroup  = "No group id given and no default group is registered for this server."
	msgRegistryOffline = "The group registry is not configured on this bot."
)

var eventCategories = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Music", Value: "music"},
	{Name: "Gaming", Value: "gaming"},
	{Name: "Hangout", Value: "hangout"},
	{Name: "Roleplaying", Value: "roleplaying"},
	{Name: "Exploration", Value: "exploration"},
	{Name: "Film & Media", Value: "film_media"},
	{Name: "Arts", Value: "arts"},
	{Name: "Education", Value: "education"},
	{Name: "Performance", Value: "performance"},
	{Name: "Other", Value: "other"},
}

// commandDefinitions builds the global slash command set. With a registry the
// group id becomes optional (falling back to the guild's default group) and
// the /group management command appears.
func commandDefinitions(withRegistry bool) []*discordgo.ApplicationCommand {
	groupIDOpt := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "groupid",
			Description: "Target group id (grp_...)",
			Required:    required,
		}
	}

	postOpts := []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Post title", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "Post body", Required: true},
		{
			Type: discordgo.ApplicationCommandOptionInteger, Name: "contentstype", Description: "Kind of post", Required: true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Post", Value: 1},
				{Name: "Announcement", Value: 2},
			},
		},
		{Type: discordgo.ApplicationCommandOptionBoolean, Name: "notification", Description: "Notify group members", Required: true},
	}
	calendarOpts := []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Event title", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "description", Description: "Event description", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "starttime", Description: "Start time (e.g. 2025-09-05 21:00)", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "endtime", Description: "End time (e.g. 2025-09-05 22:00)", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "category", Description: "Event category", Required: true, Choices: eventCategories},
		{
			Type: discordgo.ApplicationCommandOptionString, Name: "platforms", Description: "Supported platforms", Required: true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "PC & Quest", Value: "all"},
				{Name: "PC only", Value: "pc"},
				{Name: "Quest only", Value: "quest"},
			},
		},
		{Type: discordgo.ApplicationCommandOptionBoolean, Name: "sendnotification", Description: "Notify members on creation", Required: true},
		{
			Type: discordgo.ApplicationCommandOptionString, Name: "visibility", Description: "Who can see the event", Required: false,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Group only", Value: "group"},
				{Name: "Public", Value: "public"},
			},
		},
	}

	if withRegistry {
		// Optional options must trail required ones.
		postOpts = append(postOpts, groupIDOpt(false))
		calendarOpts = append(calendarOpts, groupIDOpt(false))
	} else {
		postOpts = append([]*discordgo.ApplicationCommandOption{groupIDOpt(true)}, postOpts...)
		calendarOpts = append([]*discordgo.ApplicationCommandOption{groupIDOpt(true)}, calendarOpts...)
	}

	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "login",
			Description: "Login to VRChat",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "username", Description: "Your VRChat username", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "password", Description: "Your VRChat password", Required: true},
			},
		},
		{Name: "postcontent", Description: "Create a post or announcement in a VRChat group", Options: postOpts},
		{Name: "createcalendar", Description: "Create a calendar event in a VRChat group", Options: calendarOpts},
	}

	if withRegistry {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        "group",
			Description: "Manage VRChat groups registered to this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "add", Description: "Register a group",
					Options: []*discordgo.ApplicationCommandOption{groupIDOpt(true)},
				},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "remove", Description: "Unregister a group",
					Options: []*discordgo.ApplicationCommandOption{groupIDOpt(true)},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "List registered groups"},
				{
					Type: discordgo.ApplicationCommandOptionSubCommand, Name: "default", Description: "Set the default group",
					Options: []*discordgo.ApplicationCommandOption{groupIDOpt(true)},
				},
			},
		})
	}
	return cmds
}

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.Name {
		case "login":
			g.handleLogin(s, i)
		case "postcontent":
			g.handlePostContent(s, i)
		case "createcalendar":
			g.handleCreateCalendar(s, i)
		case "group":
			g.handleGroup(s, i)
		}
	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == twoFactorModalID {
			g.handleTwoFactorModal(s, i)
		}
	}
}

// interactionResponder backs bot.Responder with Discord interaction replies.
// All replies are ephemeral.
type interactionResponder struct {
	s        *discordgo.Session
	i        *discordgo.InteractionCreate
	deferred bool
}

func (r *interactionResponder) Reply(msg string) {
	var err error
	if r.deferred {
		_, err = r.s.FollowupMessageCreate(r.i.Interaction, true, &discordgo.WebhookParams{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	} else {
		err = r.s.InteractionRespond(r.i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: msg, Flags: discordgo.MessageFlagsEphemeral},
		})
	}
	if err != nil {
		slog.Error("interaction reply failed", slog.Any("err", err))
	}
}

func (r *interactionResponder) PromptTwoFactor() error {
	return r.s.InteractionRespond(r.i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: twoFactorModalID,
			Title:    "Email 2FA Required",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    twoFactorFieldID,
						Label:       "Enter the 6-digit code sent to your email",
						Style:       discordgo.TextInputShort,
						Placeholder: "123456",
						Required:    true,
						MinLength:   6,
						MaxLength:   6,
					},
				}},
			},
		},
	})
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func stringOpt(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := m[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func boolOpt(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	if opt, ok := m[name]; ok {
		return opt.BoolValue()
	}
	return false
}

func intOpt(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	if opt, ok := m[name]; ok {
		return opt.IntValue()
	}
	return 0
}

// deferEphemeral acknowledges the interaction so slow remote calls can reply
// via followups.
func deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		slog.Error("interaction defer failed", slog.Any("err", err))
		return false
	}
	return true
}

// handleLogin is not deferred: the two-factor path must answer with a modal,
// which Discord only accepts as the initial response.
func (g *Gateway) handleLogin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	user := interactionUser(i)
	go func() {
		ctx, cancel := context.WithTimeout(telemetry.WithCorrelation(context.Background(), user.ID), commandTimeout)
		defer cancel()
		r := &interactionResponder{s: s, i: i}
		telemetry.TimeFunc(telemetry.CommandDuration, func() {
			g.svc.Login(ctx, r, user.ID, user.Username, stringOpt(opts, "username"), stringOpt(opts, "password"))
		})
	}()
}

func (g *Gateway) handleTwoFactorModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	code := ""
	for _, comp := range data.Components {
		row, ok := comp.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok && input.CustomID == twoFactorFieldID {
				code = input.Value
			}
		}
	}
	user := interactionUser(i)
	go func() {
		ctx, cancel := context.WithTimeout(telemetry.WithCorrelation(context.Background(), user.ID), commandTimeout)
		defer cancel()
		g.svc.SubmitTwoFactor(ctx, &interactionResponder{s: s, i: i}, user.ID, code)
	}()
}

func (g *Gateway) handlePostContent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferEphemeral(s, i) {
		return
	}
	opts := optionMap(i.ApplicationCommandData().Options)
	user := interactionUser(i)
	go func() {
		ctx, cancel := context.WithTimeout(telemetry.WithCorrelation(context.Background(), user.ID), commandTimeout)
		defer cancel()
		r := &interactionResponder{s: s, i: i, deferred: true}

		groupID, err := g.resolveGroupID(ctx, i, stringOpt(opts, "groupid"))
		if err != nil {
			r.Reply(err.Error())
			return
		}
		kind := bot.PostKind(intOpt(opts, "contentstype"))
		telemetry.TimeFunc(telemetry.CommandDuration, func() {
			g.svc.PostContent(ctx, r, user.Username, groupID,
				stringOpt(opts, "title"), stringOpt(opts, "message"), kind, boolOpt(opts, "notification"))
		})
	}()
}

func (g *Gateway) handleCreateCalendar(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferEphemeral(s, i) {
		return
	}
	opts := optionMap(i.ApplicationCommandData().Options)
	user := interactionUser(i)
	go func() {
		ctx, cancel := context.WithTimeout(telemetry.WithCorrelation(context.Background(), user.ID), commandTimeout)
		defer cancel()
		r := &interactionResponder{s: s, i: i, deferred: true}

		groupID, err := g.resolveGroupID(ctx, i, stringOpt(opts, "groupid"))
		if err != nil {
			r.Reply(err.Error())
			return
		}
		visibility := stringOpt(opts, "visibility")
		if visibility == "" {
			visibility = "group"
		}
		telemetry.TimeFunc(telemetry.CommandDuration, func() {
			g.svc.CreateCalendarEvent(ctx, r, user.Username, groupID,
				stringOpt(opts, "name"), stringOpt(opts, "description"),
				stringOpt(opts, "starttime"), stringOpt(opts, "endtime"),
				stringOpt(opts, "category"), stringOpt(opts, "platforms"),
				boolOpt(opts, "sendnotification"), visibility)
		})
	}()
}

// resolveGroupID falls back to the guild's registered default group when the
// caller omitted the group id.
func (g *Gateway) resolveGroupID(ctx context.Context, i *discordgo.InteractionCreate, provided string) (string, error) {
	if provided != "" {
		return provided, nil
	}
	reg := g.svc.Registry()
	if reg == nil || i.GuildID == "" {
		return "", errors.New(msgNoDefaultGroup)
	}
	def, err := reg.Default(ctx, i.GuildID)
	if err != nil {
		if errors.Is(err, db.ErrNotRegistered) {
			return "", errors.New(msgNoDefaultGroup)
		}
		slog.Error("default group lookup failed", slog.Any("err", err))
		return "", errors.New("Could not look up the default group. Try again later.")
	}
	return def.GroupID, nil
}

func (g *Gateway) handleGroup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferEphemeral(s, i) {
		return
	}
	user := interactionUser(i)
	data := i.ApplicationCommandData()
	go func() {
		ctx, cancel := context.WithTimeout(telemetry.WithCorrelation(context.Background(), user.ID), commandTimeout)
		defer cancel()
		r := &interactionResponder{s: s, i: i, deferred: true}

		reg := g.svc.Registry()
		if reg == nil {
			r.Reply(msgRegistryOffline)
			return
		}
		if i.GuildID == "" {
			r.Reply("Group management only works inside a server.")
			return
		}
		if len(data.Options) == 0 {
			return
		}
		sub := data.Options[0]
		opts := optionMap(sub.Options)
		switch sub.Name {
		case "add":
			groupID := stringOpt(opts, "groupid")
			group, err := g.svc.ResolveGroup(ctx, user.Username, groupID)
			if err != nil {
				if errors.Is(err, bot.ErrNotLoggedIn) {
					r.Reply(bot.MsgNotLoggedIn)
					return
				}
				r.Reply(fmt.Sprintf("Could not fetch group %s: %v", groupID, err))
				return
			}
			err = reg.Add(ctx, db.RegisteredGroup{
				GuildID:     i.GuildID,
				GroupID:     group.ID,
				Name:        group.Name,
				ShortCode:   group.ShortCode,
				Description: group.Description,
				OwnerID:     group.OwnerID,
			})
			if err != nil {
				slog.Error("group registration failed", slog.Any("err", err))
				r.Reply("Could not register the group. Try again later.")
				return
			}
			r.Reply(fmt.Sprintf("Registered group %q (%s).", group.Name, group.ID))
		case "remove":
			groupID := stringOpt(opts, "groupid")
			if err := reg.Remove(ctx, i.GuildID, groupID); err != nil {
				if errors.Is(err, db.ErrNotRegistered) {
					r.Reply("That group is not registered for this server.")
					return
				}
				slog.Error("group removal failed", slog.Any("err", err))
				r.Reply("Could not remove the group. Try again later.")
				return
			}
			r.Reply(fmt.Sprintf("Removed group %s.", groupID))
		case "list":
			groups, err := reg.List(ctx, i.GuildID)
			if err != nil {
				slog.Error("group list failed", slog.Any("err", err))
				r.Reply("Could not list groups. Try again later.")
				return
			}
			if len(groups) == 0 {
				r.Reply("No groups registered for this server.")
				return
			}
			msg := "Registered groups:\n"
			for _, gr := range groups {
				marker := ""
				if gr.IsDefault {
					marker = " (default)"
				}
				msg += fmt.Sprintf("- %s (%s)%s\n", gr.GroupID, gr.Name, marker)
			}
			r.Reply(msg)
		case "default":
			groupID := stringOpt(opts, "groupid")
			if err := reg.SetDefault(ctx, i.GuildID, groupID); err != nil {
				if errors.Is(err, db.ErrNotRegistered) {
					r.Reply("Register the group first with /group add.")
					return
				}
				slog.Error("set default group failed", slog.Any("err", err))
				r.Reply("Could not set the default group. Try again later.")
				return
			}
			r.Reply(fmt.Sprintf("Default group set to %s.", groupID))
		}
	}()
}
