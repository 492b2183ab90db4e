// Package auth implements registration, login, password changes, and
// bearer-token validation.
//
// Token validation is deliberately not self-sufficient: every
// authenticated request re-resolves the full user row by email, so a
// deleted user is locked out as soon as the row is gone, not when the
// token expires. All validation failures collapse into
// ErrInvalidCredentials; callers never learn whether the token was
// malformed, expired, or referenced an unknown user.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext password matches the hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
