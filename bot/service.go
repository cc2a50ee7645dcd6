// Package bot implements the command-facing logic of the bridge: the VRChat
// login flow with deferred email-OTP completion, the pending-login table, and
// dispatch of group writes (posts, announcements, calendar events) over cached
// session cookies. The chat-platform adapter calls into this package through
// the Responder interface, so nothing here depends on a specific SDK.
package bot

import (
	"time"

	"github.com/ktsubaki/vrc-group-bot/db"
	"github.com/ktsubaki/vrc-group-bot/store"
)

// Responder is the reply surface a command invocation carries with it. The
// Discord adapter backs it with interaction responses; tests use a recorder.
type Responder interface {
	// Reply sends a user-facing message for this invocation.
	Reply(msg string)
	// PromptTwoFactor asks the user for the emailed one-time code.
	PromptTwoFactor() error
}

// Service wires the credential store, the pending-login table, the optional
// group registry, and the remote client settings together. One instance lives
// for the whole process; methods are safe for concurrent command handlers.
type Service struct {
	store    *store.Store
	pending  *PendingLogins
	registry *db.GroupRegistry // nil when no database is configured

	baseURL   string
	userAgent string
	loc       *time.Location
}

// Options configures a Service. Zero values get defaults; Store is required.
type Options struct {
	Store     *store.Store
	Registry  *db.GroupRegistry
	BaseURL   string
	UserAgent string
	Location  *time.Location
}

// New creates the Service.
func New(opts Options) *Service {
	if opts.UserAgent == "" {
		opts.UserAgent = "VRChatGroupBot/1.0.0"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		store:     opts.Store,
		pending:   NewPendingLogins(PendingTTL),
		registry:  opts.Registry,
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		loc:       opts.Location,
	}
}

// CleanupExpiredLogins sweeps abandoned pending logins. Invoked periodically
// by the scheduler in main.
func (s *Service) CleanupExpiredLogins() int {
	return s.pending.SweepExpired()
}

// PendingCount reports the pending-login table size for status surfaces.
func (s *Service) PendingCount() int { return s.pending.Len() }

// CachedSessions reports the credential cache size for status surfaces.
func (s *Service) CachedSessions() int { return s.store.Len() }

// Registry exposes the optional group registry to the chat adapter.
func (s *Service) Registry() *db.GroupRegistry { return s.registry }

// userAgentFor tags remote requests with the acting Discord user, matching
// how the service expects bridge traffic to identify itself.
func (s *Service) userAgentFor(discordUser string) string {
	return s.userAgent + " " + discordUser
}
