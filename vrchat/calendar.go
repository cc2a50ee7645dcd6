package vrchat

import (
	"context"
	"net/http"
	"time"
)

// Platform tags accepted by the calendar API.
const (
	PlatformWindows = "standalonewindows"
	PlatformAndroid = "android"
)

// Calendar event access types.
const (
	AccessTypeGroup  = "group"
	AccessTypePublic = "public"
)

// CalendarEventRequest creates a group calendar event. StartsAt and EndsAt are
// serialized as RFC 3339 instants; callers convert local times to UTC first.
type CalendarEventRequest struct {
	Title                    string    `json:"title"`
	Description              string    `json:"description"`
	Category                 string    `json:"category"`
	StartsAt                 time.Time `json:"startsAt"`
	EndsAt                   time.Time `json:"endsAt"`
	Platforms                []string  `json:"platforms"`
	SendCreationNotification bool      `json:"sendCreationNotification"`
	AccessType               string    `json:"accessType"`
}

// CalendarEvent is a created event as echoed back by the service.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

// CreateCalendarEvent creates a calendar event attached to the group.
func (c *Client) CreateCalendarEvent(ctx context.Context, groupID string, req CalendarEventRequest) (*CalendarEvent, error) {
	var ev CalendarEvent
	if _, err := c.do(ctx, http.MethodPost, "/groups/"+groupID+"/calendar", req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
