package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Manager provides Redis-backed per-client login throttling. Counters live in
// one-minute windows so bursts of credential guessing are cut off without any
// long-lived state.
type Manager struct {
	redis             *redis.Client
	attemptsPerMinute int
}

func NewManager(redisURL string, attemptsPerMinute int) (*Manager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{redis: client, attemptsPerMinute: attemptsPerMinute}, nil
}

func (m *Manager) Close() error { return m.redis.Close() }

// SetLimit overrides the per-minute allowance, for tests
func (m *Manager) SetLimit(attemptsPerMinute int) {
	m.attemptsPerMinute = attemptsPerMinute
}

// Allow returns whether another login attempt from clientIP fits in the
// current minute window, and the seconds until the window resets.
func (m *Manager) Allow(ctx context.Context, clientIP string) (allowed bool, resetSec int, err error) {
	now := time.Now().UTC()
	window := now.Unix() / 60
	key := fmt.Sprintf("login:%s:%d", clientIP, window)

	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	resetSec = int(60 - now.Unix()%60)
	return int(incr.Val()) <= m.attemptsPerMinute, resetSec, nil
}
