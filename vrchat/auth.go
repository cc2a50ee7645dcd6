package vrchat

import (
	"context"
	"net/http"
	"strings"
)

// CurrentUser is the subset of the /auth/user response the bot reads.
type CurrentUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
}

// emailOTPMarker appears in the /auth/user response body when the account
// still needs an emailed one-time code to finish logging in.
const emailOTPMarker = "emailOtp"

// GetCurrentUser performs the "who am I" probe. On a login client the first
// call triggers the password handshake and fills the cookie jar; on a session
// client it validates the stored cookies (401 means they are stale). The raw
// body is returned alongside the parsed user for two-factor detection.
func (c *Client) GetCurrentUser(ctx context.Context) (*CurrentUser, []byte, error) {
	var user CurrentUser
	raw, err := c.do(ctx, http.MethodGet, "/auth/user", nil, &user)
	if err != nil {
		return nil, raw, err
	}
	return &user, raw, nil
}

// RequiresEmailOTP reports whether a probe response body signals that an
// emailed one-time code is required to complete login.
func RequiresEmailOTP(raw []byte) bool {
	return strings.Contains(string(raw), emailOTPMarker)
}

// VerifyEmailOTP submits the emailed one-time code on a login client. On
// success the service issues the twoFactorAuth cookie into the jar.
func (c *Client) VerifyEmailOTP(ctx context.Context, code string) error {
	body := struct {
		Code string `json:"code"`
	}{Code: code}
	_, err := c.do(ctx, http.MethodPost, "/auth/twofactorauth/emailotp/verify", body, nil)
	return err
}
