// Package auth hashes passwords and issues session tokens.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeHMAC   = "hmac"
	SchemeBcrypt = "bcrypt"
)

// PasswordHasher hashes new passwords with the configured scheme and
// verifies hashes produced by either scheme.
type PasswordHasher struct {
	secret []byte
	scheme string
	cost   int
}

// NewPasswordHasher creates a hasher. An unknown scheme falls back to HMAC.
func NewPasswordHasher(secret, scheme string) *PasswordHasher {
	if scheme != SchemeBcrypt {
		scheme = SchemeHMAC
	}
	return &PasswordHasher{secret: []byte(secret), scheme: scheme, cost: bcrypt.DefaultCost}
}

// Scheme returns the scheme used by Hash.
func (h *PasswordHasher) Scheme() string {
	return h.scheme
}

// Hash returns the stored form of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.scheme == SchemeBcrypt {
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt hash: %w", err)
		}
		return string(b), nil
	}
	return h.hmacHex(password), nil
}

// Verify reports whether password matches hash. Comparison is constant-time.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	want, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(password))
	return hmac.Equal(mac.Sum(nil), want)
}

func (h *PasswordHasher) hmacHex(password string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
