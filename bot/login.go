package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ktsubaki/vrc-group-bot/store"
	"github.com/ktsubaki/vrc-group-bot/telemetry"
	"github.com/ktsubaki/vrc-group-bot/vrchat"
)

// User-facing messages for the login flow.
const (
	MsgEmptyCredentials = "Username and password cannot be empty."
	MsgTwoFactorExpired = "2FA session expired. Please try logging in again."
	MsgEmptyCode        = "2FA code cannot be empty."
	MsgInvalidCode      = "Invalid 2FA code. Please check the code and try again."
	MsgAuthFailed       = "Authentication failed. Please login again."
	MsgRateLimited      = "Too many attempts. Please wait a moment before trying again."
)

// Login opens an authenticated client against VRChat with basic credentials
// and probes /auth/user. When the response flags an email one-time code, the
// half-open client is parked in the pending table (replacing any prior attempt
// by the same user) and the responder prompts for the code. Otherwise the
// session cookies are extracted and cached immediately.
func (s *Service) Login(ctx context.Context, r Responder, discordUserID, discordUser, username, password string) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		r.Reply(MsgEmptyCredentials)
		return
	}
	telemetry.LoginsStarted.Inc()

	ctx, span := telemetry.StartSpan(ctx, "bot", "vrchat.login")
	defer span.End()

	client, err := vrchat.NewLoginClient(s.baseURL, s.userAgentFor(discordUser), username, password)
	if err != nil {
		telemetry.LoginsFailed.Inc()
		telemetry.RecordError(span, err)
		slog.Error("login client setup failed", slog.Any("err", err))
		r.Reply("An unexpected error occurred during login.")
		return
	}

	_, raw, err := client.GetCurrentUser(ctx)
	if err != nil {
		telemetry.LoginsFailed.Inc()
		telemetry.RecordError(span, err)
		if ae, ok := vrchat.AsAPIError(err); ok {
			slog.Error("login failed", slog.Int("status", ae.StatusCode), slog.String("msg", ae.Message))
			r.Reply(fmt.Sprintf("Login failed: %s (status %d)", ae.Message, ae.StatusCode))
		} else {
			slog.Error("login failed", slog.Any("err", err))
			r.Reply("An unexpected error occurred during login.")
		}
		return
	}

	if vrchat.RequiresEmailOTP(raw) {
		s.pending.Put(discordUserID, &PendingLogin{
			Username:    username,
			Password:    password,
			DiscordUser: discordUser,
			Client:      client,
		})
		telemetry.TwoFactorPrompted.Inc()
		slog.Info("login awaiting email otp", slog.String("discord_user", discordUser))
		if err := r.PromptTwoFactor(); err != nil {
			slog.Error("failed to prompt for 2fa code", slog.Any("err", err))
		}
		return
	}

	// No second factor required; probe once more to confirm the session
	// before persisting cookies.
	user, _, err := client.GetCurrentUser(ctx)
	if err != nil {
		telemetry.LoginsFailed.Inc()
		telemetry.RecordError(span, err)
		slog.Error("login confirmation failed", slog.Any("err", err))
		r.Reply("An unexpected error occurred during login.")
		return
	}
	r.Reply(fmt.Sprintf("Logged in as %s", user.DisplayName))
	s.saveCookies(client, username, password, discordUser)
	telemetry.LoginsSucceeded.Inc()
	telemetry.SetSpanSuccess(span)
}

// SubmitTwoFactor completes a parked login with the emailed code. An empty
// code is rejected before the pending entry is consumed, so the attempt
// survives a blank submission. Taking the entry happens at most once; an
// absent or expired entry means the user must restart the login.
func (s *Service) SubmitTwoFactor(ctx context.Context, r Responder, discordUserID, code string) {
	if strings.TrimSpace(code) == "" {
		r.Reply(MsgEmptyCode)
		return
	}

	pl, ok := s.pending.Take(discordUserID)
	if !ok {
		r.Reply(MsgTwoFactorExpired)
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "bot", "vrchat.verify_otp")
	defer span.End()

	slog.Info("attempting 2fa verification", slog.String("discord_user", pl.DiscordUser))

	if err := pl.Client.VerifyEmailOTP(ctx, code); err != nil {
		telemetry.TwoFactorFailed.Inc()
		telemetry.RecordError(span, err)
		r.Reply(twoFactorErrorMessage(err))
		return
	}

	user, _, err := pl.Client.GetCurrentUser(ctx)
	if err != nil {
		telemetry.TwoFactorFailed.Inc()
		telemetry.RecordError(span, err)
		slog.Error("post-2fa confirmation failed", slog.Any("err", err))
		r.Reply(twoFactorErrorMessage(err))
		return
	}

	r.Reply(fmt.Sprintf("Successfully logged in as %s", user.DisplayName))
	s.saveCookies(pl.Client, pl.Username, pl.Password, pl.DiscordUser)
	telemetry.LoginsSucceeded.Inc()
	telemetry.SetSpanSuccess(span)
}

// twoFactorErrorMessage maps remote verification failures to user messages.
func twoFactorErrorMessage(err error) string {
	ae, ok := vrchat.AsAPIError(err)
	if !ok {
		return "An unexpected error occurred during 2FA verification. Please try logging in again."
	}
	switch ae.StatusCode {
	case 400:
		return MsgInvalidCode
	case 401:
		return MsgAuthFailed
	case 429:
		return MsgRateLimited
	default:
		return fmt.Sprintf("2FA verification failed: %s", ae.Message)
	}
}

// saveCookies extracts the session cookies from a completed login client and
// upserts the credential cache. Persistence failure is logged, not surfaced;
// the user is already logged in for this session.
func (s *Service) saveCookies(client *vrchat.Client, username, password, discordUser string) {
	authCookie, twoFactorCookie := client.SessionCookies()
	if authCookie == "" {
		slog.Warn("no auth cookie captured after login", slog.String("discord_user", discordUser))
	}
	err := s.store.Put(discordUser, store.Credential{
		Username:        username,
		Password:        password,
		AuthCookie:      authCookie,
		TwoFactorCookie: twoFactorCookie,
	})
	if err != nil {
		slog.Error("failed to persist session cookies", slog.String("discord_user", discordUser), slog.Any("err", err))
		return
	}
	slog.Info("session cookies saved", slog.String("discord_user", discordUser))
}
