// Package password wraps bcrypt hashing for credential verification.
// bcrypt embeds a fresh per-record salt in every hash and its comparison
// is constant-time, so callers never compare hashes directly.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Hash computes a salted adaptive hash of the plaintext.
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored hash.
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
