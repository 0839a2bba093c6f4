package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/membergate/membergate/internal/models"
)

// InMemoryStore implements Store using in-memory storage. The single mutex
// gives the same per-account read-modify-write atomicity the Postgres
// implementation gets from row locks.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account // keyed by normalized email
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[string]*models.Account),
	}
}

// UpsertActive creates or reactivates an account keyed by email
func (s *InMemoryStore) UpsertActive(ctx context.Context, email, customerID string, passwordHash []byte) (bool, error) {
	email = models.NormalizeEmail(email)
	candidate := models.Account{Email: email, PasswordHash: passwordHash}
	if err := candidate.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if acct, exists := s.accounts[email]; exists {
		acct.SubscriptionActive = true
		if acct.StripeCustomerID == "" {
			acct.StripeCustomerID = customerID
		}
		acct.UpdatedAt = now
		return false, nil
	}

	s.accounts[email] = &models.Account{
		ID:                 uuid.New(),
		Email:              email,
		PasswordHash:       passwordHash,
		StripeCustomerID:   customerID,
		SubscriptionActive: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return true, nil
}

// Deactivate marks the account with the given customer id inactive
func (s *InMemoryStore) Deactivate(ctx context.Context, customerID string) (bool, error) {
	if customerID == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range s.accounts {
		if acct.StripeCustomerID == customerID {
			acct.SubscriptionActive = false
			acct.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

// GetByEmail retrieves an account by its email
func (s *InMemoryStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if acct, exists := s.accounts[models.NormalizeEmail(email)]; exists {
		copied := *acct
		return &copied, nil
	}
	return nil, nil
}

// GetByCustomerID retrieves an account by its payment customer id
func (s *InMemoryStore) GetByCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acct := range s.accounts {
		if acct.StripeCustomerID == customerID {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
