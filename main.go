// Command vrc-group-bot is the main entrypoint for the Discord→VRChat group
// bridge. It:
//   - Loads configuration and initializes structured logging.
//   - Opens the credential cache (encrypted at rest when a key is set).
//   - Optionally connects to Postgres for the per-guild group registry.
//   - Connects the Discord gateway and registers the slash commands.
//   - Starts background jobs: pending-login sweeper, presence updates,
//     console admin shell, and the health/status/metrics HTTP server.
//
// Shutdown is graceful on SIGINT/SIGTERM or the console 'quit' command.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ktsubaki/vrc-group-bot/bot"
	"github.com/ktsubaki/vrc-group-bot/config"
	"github.com/ktsubaki/vrc-group-bot/console"
	"github.com/ktsubaki/vrc-group-bot/db"
	"github.com/ktsubaki/vrc-group-bot/discord"
	"github.com/ktsubaki/vrc-group-bot/server"
	"github.com/ktsubaki/vrc-group-bot/store"
	"github.com/ktsubaki/vrc-group-bot/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateBotReady(); err != nil {
		slog.Error("bot not configured", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("vrc-group-bot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// Credential cache (best-effort load; absent or corrupt file starts empty)
	credStore, err := store.Open(cfg.CacheFile, cfg.EncryptionKey)
	if err != nil {
		slog.Error("failed to open credential store", slog.Any("err", err))
		os.Exit(1)
	}

	// Optional group registry
	var registry *db.GroupRegistry
	if cfg.DBDsn != "" {
		database, err := db.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
		registry = db.NewGroupRegistry(database)
		slog.Info("group registry enabled")
	} else {
		slog.Info("group registry disabled (DB_DSN not set)")
	}

	svc := bot.New(bot.Options{
		Store:     credStore,
		Registry:  registry,
		BaseURL:   cfg.VRChatBaseURL,
		UserAgent: cfg.VRChatUserAgent,
		Location:  cfg.Location,
	})

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := discord.New(cfg.DiscordToken, svc)
	if err != nil {
		slog.Error("discord setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Pending-login sweeper: abandoned two-factor attempts expire after five
	// minutes; the sweep also keeps the gauges current.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := svc.CleanupExpiredLogins(); n > 0 {
					telemetry.PendingSwept.Add(float64(n))
					slog.Info("swept expired pending logins", slog.Int("count", n))
				}
				telemetry.SetPendingLogins(svc.PendingCount())
				telemetry.SetCachedSessions(svc.CachedSessions())
			}
		}
	}()

	// Console admin shell
	go console.New(svc, gateway, os.Stdin, os.Stdout, stop).Run(ctx)

	// HTTP server (health/status/metrics)
	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, svc, gateway); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Discord gateway blocks until shutdown
	if err := gateway.Start(ctx); err != nil {
		slog.Error("discord gateway error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}
