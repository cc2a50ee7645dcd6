// Package store persists per-user VRChat session credentials to a local JSON
// file keyed by Discord identity. The file is loaded once at startup and
// rewritten wholesale on every update; a missing or unreadable file starts an
// empty cache rather than failing the process. Sensitive fields are encrypted
// at rest when an encryption key is configured.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ktsubaki/vrc-group-bot/crypto"
)

// Credential is one user's cached VRChat session.
type Credential struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	DiscordUser     string `json:"discordUser"`
	AuthCookie      string `json:"authCookie"`
	TwoFactorCookie string `json:"twoFactorCookie"`
}

// Store is the process-wide credential cache. All mutation goes through a
// mutex so concurrent command handlers never interleave partial file writes.
type Store struct {
	path   string
	cipher *crypto.Cipher

	mu      sync.Mutex
	entries map[string]Credential
}

// Open loads the cache from path, or starts empty when the file is absent or
// unreadable (cache is best-effort). base64Key enables field encryption; an
// empty key keeps plaintext storage and logs a warning, a malformed key is an
// error.
func Open(path, base64Key string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]Credential)}
	if base64Key != "" {
		c, err := crypto.New(base64Key)
		if err != nil {
			return nil, fmt.Errorf("credential store encryption: %w", err)
		}
		s.cipher = c
	} else {
		slog.Warn("ENCRYPTION_KEY not set, credentials will be stored in plaintext (not recommended for production)",
			slog.String("component", "store"))
	}
	s.load()
	return s, nil
}

// Put upserts the credential for discordUser and synchronously rewrites the
// backing file.
func (s *Store) Put(discordUser string, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred.DiscordUser = discordUser
	s.entries[discordUser] = cred
	return s.persist()
}

// Get looks up the credential for discordUser.
func (s *Store) Get(discordUser string) (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.entries[discordUser]
	return cred, ok
}

// Len returns the number of cached sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// load reads the backing file. Any failure (absent, unparsable, undecryptable)
// leaves the cache empty; only a warn log surfaces it.
func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("credential cache unreadable, starting empty", slog.String("path", s.path), slog.Any("err", err))
		}
		return
	}
	var entries map[string]Credential
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("credential cache unparsable, starting empty", slog.String("path", s.path), slog.Any("err", err))
		return
	}
	if s.cipher != nil {
		for key, cred := range entries {
			dec, err := s.decrypt(cred)
			if err != nil {
				slog.Warn("credential cache undecryptable, starting empty", slog.String("path", s.path), slog.Any("err", err))
				return
			}
			entries[key] = dec
		}
	}
	s.entries = entries
}

// persist rewrites the whole table atomically (temp file + rename) so a crash
// or a concurrent reader never observes a partial document. Callers hold mu.
func (s *Store) persist() error {
	out := s.entries
	if s.cipher != nil {
		out = make(map[string]Credential, len(s.entries))
		for key, cred := range s.entries {
			enc, err := s.encrypt(cred)
			if err != nil {
				return fmt.Errorf("encrypt credential for %s: %w", key, err)
			}
			out[key] = enc
		}
	}
	buf, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential cache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".usercache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func (s *Store) encrypt(cred Credential) (Credential, error) {
	var err error
	if cred.Password, err = s.cipher.EncryptField(cred.Password); err != nil {
		return cred, err
	}
	if cred.AuthCookie, err = s.cipher.EncryptField(cred.AuthCookie); err != nil {
		return cred, err
	}
	if cred.TwoFactorCookie, err = s.cipher.EncryptField(cred.TwoFactorCookie); err != nil {
		return cred, err
	}
	return cred, nil
}

func (s *Store) decrypt(cred Credential) (Credential, error) {
	var err error
	if cred.Password, err = s.cipher.DecryptField(cred.Password); err != nil {
		return cred, err
	}
	if cred.AuthCookie, err = s.cipher.DecryptField(cred.AuthCookie); err != nil {
		return cred, err
	}
	if cred.TwoFactorCookie, err = s.cipher.DecryptField(cred.TwoFactorCookie); err != nil {
		return cred, err
	}
	return cred, nil
}
