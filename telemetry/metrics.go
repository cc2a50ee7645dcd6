// Package telemetry provides Prometheus metrics, correlation-id aware logging
// helpers, and OpenTelemetry tracing setup for the bot.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LoginsStarted        prometheus.Counter
	LoginsSucceeded      prometheus.Counter
	LoginsFailed         prometheus.Counter
	TwoFactorPrompted    prometheus.Counter
	TwoFactorFailed      prometheus.Counter
	PostsCreated         prometheus.Counter
	AnnouncementsCreated prometheus.Counter
	EventsCreated        prometheus.Counter
	PendingSwept         prometheus.Counter

	// Gauges
	PendingLoginsGauge  prometheus.Gauge
	CachedSessionsGauge prometheus.Gauge

	// Histograms (seconds)
	CommandDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LoginsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_logins_started_total", Help: "Number of VRChat login attempts started"})
		LoginsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_logins_succeeded_total", Help: "Number of VRChat logins completed"})
		LoginsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_logins_failed_total", Help: "Number of VRChat logins failed"})
		TwoFactorPrompted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_twofactor_prompted_total", Help: "Number of logins that required an emailed one-time code"})
		TwoFactorFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_twofactor_failed_total", Help: "Number of one-time-code verifications failed"})
		PostsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_group_posts_created_total", Help: "Number of group posts created"})
		AnnouncementsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_group_announcements_created_total", Help: "Number of group announcements created"})
		EventsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_calendar_events_created_total", Help: "Number of group calendar events created"})
		PendingSwept = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_pending_logins_swept_total", Help: "Number of abandoned pending logins removed by the sweeper"})
		PendingLoginsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_pending_logins", Help: "Current number of logins awaiting a one-time code"})
		CachedSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_cached_sessions", Help: "Current number of cached VRChat sessions"})
		CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_command_duration_seconds", Help: "Command handling duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// SetPendingLogins records the current pending-login table size.
func SetPendingLogins(n int) {
	if PendingLoginsGauge != nil {
		PendingLoginsGauge.Set(float64(n))
	}
}

// SetCachedSessions records the current credential cache size.
func SetCachedSessions(n int) {
	if CachedSessionsGauge != nil {
		CachedSessionsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records it in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}
