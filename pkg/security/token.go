package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// TokenLength is the number of hex characters in a share token.
const TokenLength = 32

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewToken returns 128 random bits as lowercase hex.
func NewToken() (string, error) {
	raw := make([]byte, TokenLength/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// ValidToken reports whether s has the exact share token shape.
func ValidToken(s string) bool {
	return tokenPattern.MatchString(s)
}
