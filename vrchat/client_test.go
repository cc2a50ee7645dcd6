package vrchat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoginClientSendsBasicAuthAndUserAgent(t *testing.T) {
	var gotAuth, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "authcookie_123"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"usr_1","displayName":"Alice","username":"alice"}`))
	}))
	defer server.Close()

	c, err := NewLoginClient(server.URL, "TestBot/1.0 alice#1", "ali ce", "pw+1")
	if err != nil {
		t.Fatalf("NewLoginClient: %v", err)
	}
	user, raw, err := c.GetCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if user.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, want Alice", user.DisplayName)
	}
	if len(raw) == 0 {
		t.Errorf("raw body empty")
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("Authorization = %q, want Basic", gotAuth)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(gotAuth, "Basic "))
	if err != nil {
		t.Fatalf("decode Basic header: %v", err)
	}
	// Spaces must be percent-encoded, not '+'.
	if string(decoded) != "ali%20ce:pw%2B1" {
		t.Errorf("Basic credentials = %q, want ali%%20ce:pw%%2B1", decoded)
	}
	if gotUA != "TestBot/1.0 alice#1" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	authCookie, twoFactorCookie := c.SessionCookies()
	if authCookie != "authcookie_123" {
		t.Errorf("auth cookie = %q, want authcookie_123", authCookie)
	}
	if twoFactorCookie != "" {
		t.Errorf("twoFactorAuth cookie = %q, want empty", twoFactorCookie)
	}
}

func TestRequiresEmailOTP(t *testing.T) {
	if !RequiresEmailOTP([]byte(`{"requiresTwoFactorAuth":["emailOtp"]}`)) {
		t.Errorf("expected emailOtp body to require OTP")
	}
	if RequiresEmailOTP([]byte(`{"id":"usr_1","displayName":"Alice"}`)) {
		t.Errorf("plain user body should not require OTP")
	}
}

func TestVerifyEmailOTP(t *testing.T) {
	var gotBody struct {
		Code string `json:"code"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/twofactorauth/emailotp/verify" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode verify body: %v", err)
		}
		http.SetCookie(w, &http.Cookie{Name: "twoFactorAuth", Value: "tf_456"})
		_, _ = w.Write([]byte(`{"verified":true}`))
	}))
	defer server.Close()

	c, err := NewLoginClient(server.URL, "TestBot/1.0", "bob", "pw")
	if err != nil {
		t.Fatalf("NewLoginClient: %v", err)
	}
	if err := c.VerifyEmailOTP(context.Background(), "123456"); err != nil {
		t.Fatalf("VerifyEmailOTP: %v", err)
	}
	if gotBody.Code != "123456" {
		t.Errorf("code = %q, want 123456", gotBody.Code)
	}
	_, twoFactorCookie := c.SessionCookies()
	if twoFactorCookie != "tf_456" {
		t.Errorf("twoFactorAuth cookie = %q, want tf_456", twoFactorCookie)
	}
}

func TestSessionClientReplaysCookies(t *testing.T) {
	var gotCookie, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"displayName":"Bob"}`))
	}))
	defer server.Close()

	c := NewSessionClient(server.URL, "TestBot/1.0", "authcookie_123", "tf_456")
	if _, _, err := c.GetCurrentUser(context.Background()); err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if gotCookie != "auth=authcookie_123; twoFactorAuth=tf_456;" {
		t.Errorf("Cookie header = %q", gotCookie)
	}
	if gotAuth != "" {
		t.Errorf("session client must not send Basic auth, got %q", gotAuth)
	}

	c = NewSessionClient(server.URL, "TestBot/1.0", "authcookie_123", "")
	if _, _, err := c.GetCurrentUser(context.Background()); err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if gotCookie != "auth=authcookie_123;" {
		t.Errorf("Cookie header without 2FA cookie = %q", gotCookie)
	}
}

func TestAPIErrorParsing(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode int
	}{
		{
			name:     "service envelope",
			status:   401,
			body:     `{"error":{"message":"Invalid Username/Email or Password","status_code":401}}`,
			wantMsg:  "Invalid Username/Email or Password",
			wantCode: 401,
		},
		{
			name:     "plain body",
			status:   500,
			body:     "internal error",
			wantMsg:  "internal error",
			wantCode: 500,
		},
		{
			name:     "empty body",
			status:   404,
			body:     "",
			wantMsg:  "Not Found",
			wantCode: 404,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewSessionClient(server.URL, "TestBot/1.0", "ck", "")
			_, _, err := c.GetCurrentUser(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			ae, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("error %v is not *APIError", err)
			}
			if ae.StatusCode != tt.wantCode || ae.Message != tt.wantMsg {
				t.Errorf("APIError = (%d, %q), want (%d, %q)", ae.StatusCode, ae.Message, tt.wantCode, tt.wantMsg)
			}
			if !IsStatus(err, tt.wantCode) {
				t.Errorf("IsStatus(%d) = false", tt.wantCode)
			}
		})
	}
}

func TestGetGroup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/groups/grp_x" {
			_, _ = w.Write([]byte(`{"id":"grp_x","name":"Test Group","memberCount":12}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewSessionClient(server.URL, "TestBot/1.0", "ck", "")
	g, err := c.GetGroup(context.Background(), "grp_x")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g.Name != "Test Group" || g.MemberCount != 12 {
		t.Errorf("group = %+v", g)
	}
	if _, err := c.GetGroup(context.Background(), "grp_missing"); !IsStatus(err, 404) {
		t.Errorf("missing group err = %v, want 404", err)
	}
}
