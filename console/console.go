// Package console runs the interactive admin shell on stdin. It mirrors the
// operational surface of /status for operators attached to the process and
// can trigger a pending-login sweep or a shutdown by hand.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ktsubaki/vrc-group-bot/bot"
)

// GatewayInfo is the subset of gateway state the shell reports.
type GatewayInfo interface {
	GuildCount() int
	GuildNames() []string
	Latency() time.Duration
}

// Shell reads commands line by line and executes them against the bot.
type Shell struct {
	svc     *bot.Service
	gateway GatewayInfo
	in      io.Reader
	out     io.Writer
	stop    context.CancelFunc
	started time.Time
}

// New creates a shell. stop is invoked by the quit command.
func New(svc *bot.Service, gateway GatewayInfo, in io.Reader, out io.Writer, stop context.CancelFunc) *Shell {
	return &Shell{svc: svc, gateway: gateway, in: in, out: out, stop: stop, started: time.Now()}
}

// Run blocks reading commands until ctx is cancelled or stdin closes.
// Intended to run in its own goroutine.
func (sh *Shell) Run(ctx context.Context) {
	slog.Info("console shell started; type 'help' for available commands")
	scanner := bufio.NewScanner(sh.in)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			sh.execute(strings.TrimSpace(line))
		}
	}
}

func (sh *Shell) execute(line string) {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case "help":
		sh.printf("commands: help | status | guilds | sessions | cleanup | quit\n")
	case "status":
		sh.printf("uptime: %s\n", time.Since(sh.started).Round(time.Second))
		if sh.gateway != nil {
			sh.printf("gateway: %dms latency, %d guilds\n", sh.gateway.Latency().Milliseconds(), sh.gateway.GuildCount())
		}
		sh.printf("cached sessions: %d, pending logins: %d\n", sh.svc.CachedSessions(), sh.svc.PendingCount())
	case "guilds":
		if sh.gateway == nil {
			sh.printf("gateway not connected\n")
			return
		}
		names := sh.gateway.GuildNames()
		sh.printf("connected to %d servers\n", len(names))
		for _, name := range names {
			sh.printf("- %s\n", name)
		}
	case "sessions":
		sh.printf("cached sessions: %d\n", sh.svc.CachedSessions())
		sh.printf("pending logins: %d\n", sh.svc.PendingCount())
	case "cleanup":
		n := sh.svc.CleanupExpiredLogins()
		sh.printf("removed %d expired pending logins\n", n)
	case "quit", "exit", "stop":
		sh.printf("shutting down\n")
		if sh.stop != nil {
			sh.stop()
		}
	default:
		sh.printf("unknown command %q; type 'help'\n", parts[0])
	}
}

func (sh *Shell) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(sh.out, format, args...); err != nil {
		slog.Warn("console write failed", slog.Any("err", err))
	}
}
