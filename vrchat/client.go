// Package vrchat contains a minimal client for the VRChat HTTP API covering
// what the bot needs: password login with deferred email-OTP verification,
// cookie-session reuse, group lookup, and group post/announcement/calendar
// writes. Remote failures are returned as *APIError values carrying the HTTP
// status code and the service's error message.
package vrchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production VRChat API root.
	DefaultBaseURL = "https://api.vrchat.cloud/api/1"

	// Session cookie names issued by the service.
	authCookieName      = "auth"
	twoFactorCookieName = "twoFactorAuth"
)

// Client issues authenticated requests against the VRChat API. A client is
// either a login client (Basic credentials + cookie jar, via NewLoginClient)
// or a session client (stored cookies replayed as a Cookie header, via
// NewSessionClient). BaseURL and HTTPClient are overridable for tests.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client

	basicUser    string
	basicPass    string
	cookieHeader string
	jar          http.CookieJar
}

// NewLoginClient returns a client that authenticates with Basic credentials
// and captures session cookies in a jar. Username and password are URL-escaped
// inside the Basic header as the API requires.
func NewLoginClient(baseURL, userAgent, username, password string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		UserAgent:  userAgent,
		HTTPClient: &http.Client{Jar: jar, Timeout: 30 * time.Second},
		basicUser:  escapeCredential(username),
		basicPass:  escapeCredential(password),
		jar:        jar,
	}, nil
}

// NewSessionClient returns a client that authenticates by replaying stored
// session cookies, never the password.
func NewSessionClient(baseURL, userAgent, authCookie, twoFactorCookie string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	header := authCookieName + "=" + authCookie + ";"
	if twoFactorCookie != "" {
		header += " " + twoFactorCookieName + "=" + twoFactorCookie + ";"
	}
	return &Client{
		BaseURL:      baseURL,
		UserAgent:    userAgent,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		cookieHeader: header,
	}
}

// escapeCredential percent-encodes a credential for the Basic header. The
// service wants %20 for spaces, which QueryEscape alone would emit as '+'.
func escapeCredential(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// do performs one API request. A non-2xx response is returned as *APIError.
// The raw body is returned so callers can probe it (two-factor detection).
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) ([]byte, error) {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.basicUser != "" || c.basicPass != "" {
		req.SetBasicAuth(c.basicUser, c.basicPass)
	}
	if c.cookieHeader != "" {
		req.Header.Set("Cookie", c.cookieHeader)
	}

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, parseAPIError(resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("decode response: %w", err)
		}
	}
	return raw, nil
}

// SessionCookies extracts the auth and twoFactorAuth cookies captured by a
// login client's jar. Missing cookies come back empty.
func (c *Client) SessionCookies() (authCookie, twoFactorCookie string) {
	if c.jar == nil {
		return "", ""
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", ""
	}
	for _, ck := range c.jar.Cookies(u) {
		switch ck.Name {
		case authCookieName:
			authCookie = ck.Value
		case twoFactorCookieName:
			twoFactorCookie = ck.Value
		}
	}
	return authCookie, twoFactorCookie
}
