package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	email     string
	expiresAt time.Time
}

// InMemoryStore implements Store for deployments without Redis and for tests
type InMemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]memoryEntry
	now      func() time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (s *InMemoryStore) Create(ctx context.Context, email string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memoryEntry{email: email, expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

func (s *InMemoryStore) Get(ctx context.Context, token string) (string, error) {
	s.mu.RLock()
	entry, exists := s.sessions[token]
	s.mu.RUnlock()

	if !exists {
		return "", nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return "", nil
	}
	return entry.email, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
