package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// MockVRChatServer is a test server that mocks the VRChat API endpoints the
// bot talks to. Handlers are keyed by request path; unknown paths 404.
type MockVRChatServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	requests atomic.Int64
}

// NewMockVRChatServer creates a new mock VRChat API server.
func NewMockVRChatServer(t *testing.T) *MockVRChatServer {
	t.Helper()
	m := &MockVRChatServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// RequestCount returns how many requests the server has seen. Useful for
// asserting that validation failures never reach the network.
func (m *MockVRChatServer) RequestCount() int64 { return m.requests.Load() }

// MockCurrentUser serves /auth/user with a signed-in user, optionally setting
// session cookies as the real service does on a password login.
func (m *MockVRChatServer) MockCurrentUser(displayName string, cookies ...*http.Cookie) {
	m.Handlers["/auth/user"] = func(w http.ResponseWriter, r *http.Request) {
		for _, ck := range cookies {
			http.SetCookie(w, ck)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":          "usr_mock",
			"displayName": displayName,
			"username":    displayName,
		})
	}
}

// MockCurrentUserNeedsOTP serves /auth/user with the email one-time-code
// marker, as the service does when a second factor is still required.
func (m *MockVRChatServer) MockCurrentUserNeedsOTP(cookies ...*http.Cookie) {
	m.Handlers["/auth/user"] = func(w http.ResponseWriter, r *http.Request) {
		for _, ck := range cookies {
			http.SetCookie(w, ck)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"requiresTwoFactorAuth": []string{"emailOtp"},
		})
	}
}

// MockVerifyOTP serves the email OTP verification endpoint. When accept is
// false it answers with the given status and message.
func (m *MockVRChatServer) MockVerifyOTP(accept bool, status int, message string, cookies ...*http.Cookie) {
	m.Handlers["/auth/twofactorauth/emailotp/verify"] = func(w http.ResponseWriter, r *http.Request) {
		if !accept {
			MockError(status, message)(w, r)
			return
		}
		for _, ck := range cookies {
			http.SetCookie(w, ck)
		}
		writeJSON(w, http.StatusOK, map[string]any{"verified": true})
	}
}

// MockGroup serves a group lookup for the given id.
func (m *MockVRChatServer) MockGroup(groupID, name string) {
	m.Handlers["/groups/"+groupID] = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": groupID, "name": name})
	}
}

// MockError returns a handler answering with the service's error envelope.
func MockError(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, map[string]any{
			"error": map[string]any{"message": message, "status_code": status},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
}
