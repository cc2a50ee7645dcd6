// Package server exposes the bot's operational HTTP surface: liveness,
// status, and Prometheus metrics. It injects correlation IDs into request
// contexts for consistent logging.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ktsubaki/vrc-group-bot/telemetry"
)

// StatusSource reports the bot's current state for /status.
type StatusSource interface {
	PendingCount() int
	CachedSessions() int
}

// GatewaySource reports chat-gateway state; nil-able when the gateway is not
// connected (e.g. in tests).
type GatewaySource interface {
	GuildCount() int
	Latency() time.Duration
}

// NewMux returns the HTTP handler with all routes.
func NewMux(status StatusSource, gateway GatewaySource) http.Handler {
	start := time.Now()
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"uptime_seconds":  int(time.Since(start).Seconds()),
			"cached_sessions": status.CachedSessions(),
			"pending_logins":  status.PendingCount(),
		}
		if gateway != nil {
			body["guilds"] = gateway.GuildCount()
			body["gateway_latency_ms"] = gateway.Latency().Milliseconds()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	// Correlation ID injector.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start runs the HTTP server until ctx is cancelled.
func Start(ctx context.Context, addr string, status StatusSource, gateway GatewaySource) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(status, gateway),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()
	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
