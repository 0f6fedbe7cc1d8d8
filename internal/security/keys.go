package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

// MinSecretBytes is the minimum signing key length accepted for HS512.
const MinSecretBytes = 32

var (
	// ErrInvalidKey is returned when the configured secret is empty or cannot be decoded.
	ErrInvalidKey = errors.New("invalid key")
	// ErrWeakKey is returned when the decoded secret is shorter than MinSecretBytes.
	ErrWeakKey = fmt.Errorf("%w: secret shorter than %d bytes", ErrInvalidKey, MinSecretBytes)
)

// LoadSecret resolves the HS512 signing key from configuration. s may be
// "base64:<std-encoded bytes>", "file:<path>" or the raw secret itself.
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	var key []byte
	switch {
	case strings.HasPrefix(s, "base64:"):
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "base64:"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		key = b
	case strings.HasPrefix(s, "file:"):
		b, err := os.ReadFile(strings.TrimPrefix(s, "file:"))
		if err != nil {
			return nil, fmt.Errorf("read secret file: %w", err)
		}
		key = []byte(strings.TrimSpace(string(b)))
	default:
		key = []byte(s)
	}
	if len(key) < MinSecretBytes {
		return nil, ErrWeakKey
	}
	return key, nil
}

// GenerateSecret returns a new random 64-byte key in the "base64:" form LoadSecret accepts.
func GenerateSecret() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "base64:" + base64.StdEncoding.EncodeToString(b), nil
}
