// Package discord adapts the bot's command logic to the Discord gateway:
// slash command registration, interaction dispatch, the email-OTP modal, and
// the presence status loop. Everything user-visible is ephemeral; credentials
// never end up in channel history.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ktsubaki/vrc-group-bot/bot"
)

// Gateway owns the Discord session and bridges interactions to bot.Service.
type Gateway struct {
	session *discordgo.Session
	svc     *bot.Service
}

// New creates a gateway for the given bot token.
func New(token string, svc *bot.Service) (*Gateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	g := &Gateway{session: session, svc: svc}
	session.AddHandler(g.onReady)
	session.AddHandler(g.onInteraction)
	return g, nil
}

// Start connects to the gateway and blocks until ctx is cancelled, then
// disconnects.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	slog.Info("discord gateway connected")

	go g.statusLoop(ctx)

	<-ctx.Done()
	if err := g.session.Close(); err != nil {
		slog.Error("discord disconnect error", slog.Any("err", err))
	}
	return nil
}

// GuildCount reports how many guilds the bot currently sees.
func (g *Gateway) GuildCount() int {
	if g.session.State == nil {
		return 0
	}
	return len(g.session.State.Guilds)
}

// GuildNames lists the names of the guilds the bot is in.
func (g *Gateway) GuildNames() []string {
	if g.session.State == nil {
		return nil
	}
	names := make([]string, 0, len(g.session.State.Guilds))
	for _, guild := range g.session.State.Guilds {
		names = append(names, guild.Name)
	}
	return names
}

// Latency reports the gateway heartbeat latency.
func (g *Gateway) Latency() time.Duration {
	return g.session.HeartbeatLatency()
}

func (g *Gateway) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", commandDefinitions(g.svc.Registry() != nil)); err != nil {
		slog.Error("global command registration failed", slog.Any("err", err))
		return
	}
	slog.Info("commands registered globally")
}

// statusLoop refreshes the bot presence with latency and guild count.
func (g *Gateway) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(120 * time.Second)
	defer ticker.Stop()
	for {
		status := fmt.Sprintf("%dms | %d servers", g.Latency().Milliseconds(), g.GuildCount())
		if err := g.session.UpdateListeningStatus(status); err != nil {
			slog.Warn("presence update failed", slog.Any("err", err))
		} else {
			slog.Debug("presence updated", slog.String("status", status))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
