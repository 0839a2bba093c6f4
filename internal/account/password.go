package account

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// temporaryPasswordBytes is the entropy of a generated credential. 8 random
// bytes hex-encode to a 16 character password.
const temporaryPasswordBytes = 8

// GenerateTemporaryPassword returns a random hex-encoded credential for a
// newly provisioned member. The plaintext goes to the mailer once and is
// never persisted or logged.
func GenerateTemporaryPassword() (string, error) {
	b := make([]byte, temporaryPasswordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPassword bcrypt-hashes a plaintext credential for storage
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword compares a stored hash against a candidate. bcrypt's compare
// is constant-time over the hash, which closes the timing side channel on
// credential mismatch.
func CheckPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
