package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2KeySize is the length of both the salt and the derived key.
	pbkdf2KeySize = 64
	// pbkdf2Iterations trades CPU time for brute-force resistance.
	pbkdf2Iterations = 350000
)

// PasswordHasher derives and verifies salted PBKDF2-SHA512 password hashes.
// Hash and salt are exchanged base64-encoded so they can be stored in plain
// text columns.
type PasswordHasher struct{}

// NewPasswordHasher creates a PasswordHasher.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{}
}

// Hash derives a key from password under a fresh random salt and returns
// both base64-encoded.
func (h *PasswordHasher) Hash(password string) (hash, salt string, err error) {
	rawSalt := make([]byte, pbkdf2KeySize)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), rawSalt, pbkdf2Iterations, pbkdf2KeySize, sha512.New)
	return base64.StdEncoding.EncodeToString(key), base64.StdEncoding.EncodeToString(rawSalt), nil
}

// Verify re-derives the key for password under the stored salt and compares
// it against the stored hash in constant time. A malformed stored hash or
// salt is reported as an error, not as a mismatch.
func (h *PasswordHasher) Verify(password, storedHash, storedSalt string) (bool, error) {
	rawSalt, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false, fmt.Errorf("decode stored salt: %w", err)
	}
	rawHash, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false, fmt.Errorf("decode stored hash: %w", err)
	}

	key := pbkdf2.Key([]byte(password), rawSalt, pbkdf2Iterations, pbkdf2KeySize, sha512.New)
	return subtle.ConstantTimeCompare(key, rawHash) == 1, nil
}
