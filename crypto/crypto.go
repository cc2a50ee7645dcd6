// Package crypto protects sensitive fields of the persisted credential cache
// (VRChat passwords and session cookies) with AES-256-GCM authenticated
// encryption. The cache file is rewritten wholesale on every update, so no
// per-record key metadata is kept; one key encrypts the whole file's fields.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Cipher encrypts and decrypts individual string fields. Values are stored as
// base64(nonce || ciphertext || tag) so they fit in JSON string fields.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a base64-encoded 32-byte key, e.g. generated with
//
//	openssl rand -base64 32
func New(base64Key string) (*Cipher, error) {
	if base64Key == "" {
		return nil, fmt.Errorf("encryption key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: base64 decode failed: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: must be 32 bytes (256 bits), got %d bytes", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// EncryptField encrypts a single field value. Empty input stays empty so that
// optional fields (e.g. a missing twoFactorAuth cookie) round-trip cleanly.
func (c *Cipher) EncryptField(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptField reverses EncryptField. It fails if the value was tampered with
// or was encrypted under a different key.
func (c *Cipher) DecryptField(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(sealed) < ns {
		return "", fmt.Errorf("ciphertext too short: expected at least %d bytes, got %d", ns, len(sealed))
	}
	plaintext, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: authentication or integrity check failed")
	}
	return string(plaintext), nil
}
