package store

import (
	"context"

	"github.com/membergate/membergate/internal/database"
	"github.com/membergate/membergate/internal/models"
)

// Store defines the interface for account storage. Both write primitives are
// atomic per account record so redelivered or concurrent webhook events
// cannot lose updates.
type Store interface {
	// UpsertActive creates an active account, or reactivates an existing one
	// keyed by email. The password hash is only applied on creation and the
	// customer id is never overwritten once set. Returns whether a new
	// account was created.
	UpsertActive(ctx context.Context, email, customerID string, passwordHash []byte) (created bool, err error)

	// Deactivate marks the account with the given customer id inactive.
	// Returns false when no account matches.
	Deactivate(ctx context.Context, customerID string) (found bool, err error)

	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByCustomerID(ctx context.Context, customerID string) (*models.Account, error)
	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	QueryRow(ctx context.Context, sql string, args ...any) database.Row
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a new store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}
