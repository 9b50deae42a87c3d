package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/kbukum/scribegate/errors"
)

// bcrypt ignores input beyond 72 bytes.
const maxSecretLen = 72

// FormatToken joins a key id and its secret into the credential sent as
// "Authorization: Token <id>.<secret>".
func FormatToken(id, secret string) string {
	return id + "." + secret
}

// ParseToken splits a credential into key id and secret.
func ParseToken(token string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return "", "", apperrors.InvalidToken().WithDetail("reason", "expected <key-id>.<secret>")
	}
	if len(secret) > maxSecretLen {
		return "", "", apperrors.InvalidToken().WithDetail("reason", "secret too long")
	}
	return id, secret, nil
}

// generateSecret returns n cryptographically secure random bytes, hex-encoded.
func generateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("apikey: generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashSecret(secret string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("apikey: hash: %w", err)
	}
	return string(hash), nil
}

func verifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
