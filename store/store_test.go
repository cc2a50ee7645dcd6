package store

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func cachePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "usercache.json")
}

func TestPutGetRoundTrip(t *testing.T) {
	s, err := Open(cachePath(t), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cred := Credential{
		Username:        "alice",
		Password:        "pw1",
		AuthCookie:      "authcookie_abc",
		TwoFactorCookie: "tfcookie_def",
	}
	if err := s.Put("alice#1", cred); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get("alice#1")
	if !ok {
		t.Fatalf("Get: entry missing")
	}
	if got.AuthCookie != "authcookie_abc" || got.TwoFactorCookie != "tfcookie_def" {
		t.Errorf("cookie fields = (%q, %q), want stored values", got.AuthCookie, got.TwoFactorCookie)
	}
	if got.DiscordUser != "alice#1" {
		t.Errorf("DiscordUser = %q, want alice#1", got.DiscordUser)
	}
}

func TestGetAbsent(t *testing.T) {
	s, err := Open(cachePath(t), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.Get("nobody#0"); ok {
		t.Errorf("expected absent entry")
	}
}

func TestPutOverwrites(t *testing.T) {
	s, err := Open(cachePath(t), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("bob#2", Credential{Username: "bob", AuthCookie: "old"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("bob#2", Credential{Username: "bob", AuthCookie: "new"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := s.Get("bob#2")
	if got.AuthCookie != "new" {
		t.Errorf("AuthCookie = %q, want new", got.AuthCookie)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := cachePath(t)
	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("alice#1", Credential{Username: "alice", Password: "pw1", AuthCookie: "ck"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s2, err := Open(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := s2.Get("alice#1")
	if !ok || got.Password != "pw1" || got.AuthCookie != "ck" {
		t.Errorf("reopened entry = (%+v, %v), want original", got, ok)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := cachePath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open should swallow corrupt file, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestEncryptedAtRest(t *testing.T) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	b64 := base64.StdEncoding.EncodeToString(key)

	path := cachePath(t)
	s, err := Open(path, b64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("alice#1", Credential{Username: "alice", Password: "pw1", AuthCookie: "authcookie_abc"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cache file: %v", err)
	}
	if strings.Contains(string(raw), "pw1") || strings.Contains(string(raw), "authcookie_abc") {
		t.Errorf("sensitive fields stored in plaintext: %s", raw)
	}
	// Username stays readable for operator inspection.
	var onDisk map[string]Credential
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("cache file not valid json: %v", err)
	}
	if onDisk["alice#1"].Username != "alice" {
		t.Errorf("username on disk = %q, want alice", onDisk["alice#1"].Username)
	}

	s2, err := Open(path, b64)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := s2.Get("alice#1")
	if !ok || got.Password != "pw1" || got.AuthCookie != "authcookie_abc" {
		t.Errorf("decrypted entry = (%+v, %v), want original", got, ok)
	}
}

func TestWrongKeyStartsEmpty(t *testing.T) {
	k1 := make([]byte, 32)
	k2 := make([]byte, 32)
	rand.Read(k1)
	rand.Read(k2)

	path := cachePath(t)
	s, err := Open(path, base64.StdEncoding.EncodeToString(k1))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("alice#1", Credential{Password: "pw1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s2, err := Open(path, base64.StdEncoding.EncodeToString(k2))
	if err != nil {
		t.Fatalf("reopen with different key should start empty, got %v", err)
	}
	if s2.Len() != 0 {
		t.Errorf("Len = %d, want 0 after key change", s2.Len())
	}
}

func TestBadKeyIsAnError(t *testing.T) {
	if _, err := Open(cachePath(t), "not-a-key"); err == nil {
		t.Errorf("expected error for malformed encryption key")
	}
}

func TestConcurrentPuts(t *testing.T) {
	path := cachePath(t)
	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var wg sync.WaitGroup
	users := []string{"a#1", "b#2", "c#3", "d#4"}
	for i := 0; i < 8; i++ {
		for _, u := range users {
			wg.Add(1)
			go func(u string, n int) {
				defer wg.Done()
				_ = s.Put(u, Credential{Username: u, AuthCookie: "ck"})
			}(u, i)
		}
	}
	wg.Wait()

	// The file must be a complete, parsable document with all four entries.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cache file: %v", err)
	}
	var onDisk map[string]Credential
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("cache file corrupted by concurrent puts: %v", err)
	}
	if len(onDisk) != len(users) {
		t.Errorf("on-disk entries = %d, want %d", len(onDisk), len(users))
	}
}
