// Package security holds the credential and token primitives shared by user
// accounts and password protected shares.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	saltBytes = 16
	keyLength = 64

	// scrypt cost parameters (N, r, p).
	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

// HashPassword derives a hex encoded scrypt key with a fresh random salt.
func HashPassword(password string) (hash string, salt string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	salt = hex.EncodeToString(raw)

	key, err := derive(password, salt)
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(key), salt, nil
}

// VerifyPassword reports whether password matches the stored hash and salt.
// Missing or malformed inputs yield false, never an error.
func VerifyPassword(password, salt, hash string) bool {
	if salt == "" || hash == "" {
		return false
	}
	expected, err := hex.DecodeString(hash)
	if err != nil || len(expected) != keyLength {
		return false
	}
	actual, err := derive(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func derive(password, salt string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// ScryptHasher exposes HashPassword and VerifyPassword as a value that can be
// injected where a credential capability is expected.
type ScryptHasher struct{}

// Hash derives a hash and salt for password.
func (ScryptHasher) Hash(password string) (string, string, error) {
	return HashPassword(password)
}

// Verify checks password against a stored salt and hash.
func (ScryptHasher) Verify(password, salt, hash string) bool {
	return VerifyPassword(password, salt, hash)
}
