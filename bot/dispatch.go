package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ktsubaki/vrc-group-bot/telemetry"
	"github.com/ktsubaki/vrc-group-bot/vrchat"
)

// ErrNotLoggedIn is returned by ResolveGroup when the user has no cached
// session.
var ErrNotLoggedIn = errors.New("not logged in")

// PostKind selects between a group post and a group announcement.
type PostKind int

const (
	PostKindPost PostKind = iota + 1
	PostKindAnnouncement
)

// User-facing messages for dispatch.
const (
	MsgNotLoggedIn    = "You are not logged in. Use /login first."
	MsgSessionExpired = "Your VRChat session has expired. Use /login again."
	MsgGroupNotFound  = "Group not found. Check the group id."
	MsgNoPermission   = "You don't have permission to do that in this group."
)

// TimeLayout is the input format for calendar event times, interpreted in the
// configured timezone.
const TimeLayout = "2006-01-02 15:04"

// PlatformsFor maps the 3-way platform choice to the calendar API's platform
// tags: "pc" is Windows only, "quest" is Android only, anything else is both.
func PlatformsFor(choice string) []string {
	switch choice {
	case "pc":
		return []string{vrchat.PlatformWindows}
	case "quest":
		return []string{vrchat.PlatformAndroid}
	default:
		return []string{vrchat.PlatformWindows, vrchat.PlatformAndroid}
	}
}

// PostContent publishes a post or announcement to a group on behalf of a
// cached session. The stored cookie is re-validated first; a stale cookie
// means the user must log in again, never an automatic retry.
func (s *Service) PostContent(ctx context.Context, r Responder, discordUser, groupID, title, message string, kind PostKind, notify bool) {
	if strings.TrimSpace(groupID) == "" || strings.TrimSpace(title) == "" || strings.TrimSpace(message) == "" {
		r.Reply("Group id, title and message are all required.")
		return
	}
	if kind != PostKindPost && kind != PostKindAnnouncement {
		r.Reply("Invalid post type.")
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "bot", "vrchat.post_content")
	defer span.End()

	client, group, ok := s.openSession(ctx, r, discordUser, groupID)
	if !ok {
		telemetry.RecordError(span, fmt.Errorf("session or group unavailable"))
		return
	}

	switch kind {
	case PostKindPost:
		post, err := client.CreateGroupPost(ctx, groupID, vrchat.PostRequest{
			Title:            title,
			Text:             message,
			Visibility:       "group",
			SendNotification: notify,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			s.replyRemoteError(r, "post creation failed", err)
			return
		}
		telemetry.PostsCreated.Inc()
		slog.Info("group post created", slog.String("group", group.Name), slog.String("title", post.Title))
		r.Reply(fmt.Sprintf("Posted to group %q!\nTitle: %q", group.Name, post.Title))
	case PostKindAnnouncement:
		ann, err := client.CreateGroupAnnouncement(ctx, groupID, vrchat.AnnouncementRequest{
			Title:            title,
			Text:             message,
			SendNotification: notify,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			s.replyRemoteError(r, "announcement creation failed", err)
			return
		}
		telemetry.AnnouncementsCreated.Inc()
		slog.Info("group announcement created", slog.String("group", group.Name), slog.String("title", ann.Title))
		r.Reply(fmt.Sprintf("Announcement created in group %q!\nTitle: %q", group.Name, ann.Title))
	}
	telemetry.SetSpanSuccess(span)
}

// CreateCalendarEvent creates a group calendar event. All validation (times
// parse, end strictly after start, category/platform choices) happens before
// any remote call. Input times are read in the configured timezone and sent
// to the API as UTC instants.
func (s *Service) CreateCalendarEvent(ctx context.Context, r Responder, discordUser, groupID, name, description, startStr, endStr, category, platformChoice string, notify bool, visibility string) {
	if strings.TrimSpace(groupID) == "" || strings.TrimSpace(name) == "" ||
		strings.TrimSpace(description) == "" || strings.TrimSpace(startStr) == "" || strings.TrimSpace(endStr) == "" {
		r.Reply("All fields are required.")
		return
	}
	start, err := time.ParseInLocation(TimeLayout, startStr, s.loc)
	if err != nil {
		r.Reply("Times must look like `2025-09-05 21:00`.")
		return
	}
	end, err := time.ParseInLocation(TimeLayout, endStr, s.loc)
	if err != nil {
		r.Reply("Times must look like `2025-09-05 21:00`.")
		return
	}
	if !end.After(start) {
		r.Reply("End time must be after the start time.")
		return
	}
	accessType := vrchat.AccessTypeGroup
	if visibility == "public" {
		accessType = vrchat.AccessTypePublic
	}

	ctx, span := telemetry.StartSpan(ctx, "bot", "vrchat.create_calendar_event")
	defer span.End()

	client, group, ok := s.openSession(ctx, r, discordUser, groupID)
	if !ok {
		telemetry.RecordError(span, fmt.Errorf("session or group unavailable"))
		return
	}

	ev, err := client.CreateCalendarEvent(ctx, groupID, vrchat.CalendarEventRequest{
		Title:                    name,
		Description:              description,
		Category:                 category,
		StartsAt:                 start.UTC(),
		EndsAt:                   end.UTC(),
		Platforms:                PlatformsFor(platformChoice),
		SendCreationNotification: notify,
		AccessType:               accessType,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.replyRemoteError(r, "calendar event creation failed", err)
		return
	}
	telemetry.EventsCreated.Inc()
	slog.Info("calendar event created", slog.String("group", group.Name), slog.String("title", ev.Title))
	r.Reply(fmt.Sprintf("Calendar event created in group %q!\nTitle: %q", group.Name, ev.Title))
	telemetry.SetSpanSuccess(span)
}

// ResolveGroup validates the caller's cached session and fetches group
// metadata. Used by registry commands that need group details without
// performing a write.
func (s *Service) ResolveGroup(ctx context.Context, discordUser, groupID string) (*vrchat.Group, error) {
	cred, ok := s.store.Get(discordUser)
	if !ok || cred.AuthCookie == "" {
		return nil, ErrNotLoggedIn
	}
	client := vrchat.NewSessionClient(s.baseURL, s.userAgentFor(discordUser), cred.AuthCookie, cred.TwoFactorCookie)
	if _, _, err := client.GetCurrentUser(ctx); err != nil {
		return nil, err
	}
	return client.GetGroup(ctx, groupID)
}

// openSession builds a cookie-session client for discordUser, re-validates the
// session, and resolves the target group. It replies on every failure path
// and reports success through the bool.
func (s *Service) openSession(ctx context.Context, r Responder, discordUser, groupID string) (*vrchat.Client, *vrchat.Group, bool) {
	cred, ok := s.store.Get(discordUser)
	if !ok || cred.AuthCookie == "" {
		r.Reply(MsgNotLoggedIn)
		return nil, nil, false
	}
	client := vrchat.NewSessionClient(s.baseURL, s.userAgentFor(discordUser), cred.AuthCookie, cred.TwoFactorCookie)

	user, _, err := client.GetCurrentUser(ctx)
	if err != nil {
		if vrchat.IsStatus(err, 401) {
			slog.Warn("stale session cookie", slog.String("discord_user", discordUser))
			r.Reply(MsgSessionExpired)
			return nil, nil, false
		}
		s.replyRemoteError(r, "session validation failed", err)
		return nil, nil, false
	}
	slog.Debug("cookie session validated", slog.String("display_name", user.DisplayName))

	group, err := client.GetGroup(ctx, groupID)
	if err != nil {
		s.replyRemoteError(r, "group lookup failed", err)
		return nil, nil, false
	}
	return client, group, true
}

// replyRemoteError maps a remote failure to the user message taxonomy:
// 401/403/404 get specific messages, 429 a wait suggestion, everything else a
// generic template carrying the remote text. Non-API faults are logged in
// full and answered with a generic apology.
func (s *Service) replyRemoteError(r Responder, what string, err error) {
	ae, ok := vrchat.AsAPIError(err)
	if !ok {
		slog.Error(what, slog.Any("err", err))
		r.Reply("An unexpected error occurred. Please try again later.")
		return
	}
	slog.Error(what, slog.Int("status", ae.StatusCode), slog.String("msg", ae.Message))
	switch ae.StatusCode {
	case 401:
		r.Reply(MsgAuthFailed)
	case 403:
		r.Reply(MsgNoPermission)
	case 404:
		r.Reply(MsgGroupNotFound)
	case 429:
		r.Reply(MsgRateLimited)
	default:
		r.Reply(fmt.Sprintf("VRChat API error: %s", ae.Message))
	}
}
