package vrchat

import (
	"context"
	"net/http"
)

// Group is the subset of a group record the bot reads.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ShortCode   string `json:"shortCode"`
	Description string `json:"description"`
	OwnerID     string `json:"ownerId"`
	MemberCount int    `json:"memberCount"`
}

// GroupPost is a created post or announcement as echoed back by the service.
type GroupPost struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// PostRequest creates a group post. Visibility is "group" for member-only
// posts, which is the only visibility the bot issues.
type PostRequest struct {
	Title            string `json:"title"`
	Text             string `json:"text"`
	Visibility       string `json:"visibility"`
	SendNotification bool   `json:"sendNotification"`
}

// AnnouncementRequest creates a group announcement.
type AnnouncementRequest struct {
	Title            string `json:"title"`
	Text             string `json:"text"`
	SendNotification bool   `json:"sendNotification"`
}

// GetGroup resolves a group by id ("grp_..."). A 404 surfaces as *APIError.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var g Group
	if _, err := c.do(ctx, http.MethodGet, "/groups/"+groupID, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroupPost publishes a post to the group.
func (c *Client) CreateGroupPost(ctx context.Context, groupID string, req PostRequest) (*GroupPost, error) {
	var p GroupPost
	if _, err := c.do(ctx, http.MethodPost, "/groups/"+groupID+"/posts", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateGroupAnnouncement publishes an announcement to the group.
func (c *Client) CreateGroupAnnouncement(ctx context.Context, groupID string, req AnnouncementRequest) (*GroupPost, error) {
	var p GroupPost
	if _, err := c.do(ctx, http.MethodPost, "/groups/"+groupID+"/announcement", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
