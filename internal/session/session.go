package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/membergate/membergate/internal/logger"
)

// Store holds opaque login tokens mapped to the member's email. Tokens expire
// after the configured TTL; the subscription state is always re-read from the
// account store, never cached here.
type Store interface {
	Create(ctx context.Context, email string) (token string, err error)
	// Get resolves a token to an email; empty string when unknown or expired
	Get(ctx context.Context, token string) (email string, err error)
	Delete(ctx context.Context, token string) error
}

// New returns a Redis-backed store when a URL is configured, otherwise an
// in-memory one.
func New(redisURL string, ttl time.Duration) (Store, error) {
	if redisURL == "" {
		logger.Info("REDIS_URL not set; using in-memory session store")
		return NewInMemoryStore(ttl), nil
	}
	return NewRedisStore(redisURL, ttl)
}

// newToken returns a 32-byte URL-safe random token
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
