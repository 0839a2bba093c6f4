package store

import (
	"context"
	"fmt"

	"github.com/membergate/membergate/internal/database"
	"github.com/membergate/membergate/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the accounts table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash BYTEA NOT NULL,
			stripe_customer_id TEXT NOT NULL DEFAULT '',
			subscription_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS accounts_stripe_customer_id_idx
			ON accounts (stripe_customer_id);
	`
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure accounts schema: %w", err)
	}
	return nil
}

// UpsertActive inserts an active account or reactivates the existing one in a
// single statement. The conflict branch leaves the stored credential alone
// and only fills stripe_customer_id when it was never set, so redelivered
// checkout events converge without regenerating anything. The row-level lock
// taken by the upsert is what serializes concurrent reactivation/revocation
// for the same account.
func (s *PostgresStore) UpsertActive(ctx context.Context, email, customerID string, passwordHash []byte) (bool, error) {
	email = models.NormalizeEmail(email)
	acct := models.Account{Email: email, PasswordHash: passwordHash}
	if err := acct.Validate(); err != nil {
		return false, err
	}

	query := `
		INSERT INTO accounts (id, email, password_hash, stripe_customer_id, subscription_active, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, TRUE, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			subscription_active = TRUE,
			stripe_customer_id = CASE
				WHEN accounts.stripe_customer_id = '' THEN EXCLUDED.stripe_customer_id
				ELSE accounts.stripe_customer_id
			END,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`

	var created bool
	row := s.db.QueryRow(ctx, query, email, passwordHash, customerID)
	if err := row.Scan(&created); err != nil {
		return false, fmt.Errorf("upsert account %s: %w", email, err)
	}
	return created, nil
}

// Deactivate marks the matching account inactive
func (s *PostgresStore) Deactivate(ctx context.Context, customerID string) (bool, error) {
	if customerID == "" {
		return false, nil
	}

	query := `
		UPDATE accounts
		SET subscription_active = FALSE, updated_at = NOW()
		WHERE stripe_customer_id = $1
	`

	affected, err := s.db.Exec(ctx, query, customerID)
	if err != nil {
		return false, fmt.Errorf("deactivate customer %s: %w", customerID, err)
	}
	return affected > 0, nil
}

// GetByEmail retrieves an account by its email, nil when absent
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getBy(ctx, "email = $1", models.NormalizeEmail(email))
}

// GetByCustomerID retrieves an account by its payment customer id, nil when absent
func (s *PostgresStore) GetByCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	return s.getBy(ctx, "stripe_customer_id = $1", customerID)
}

func (s *PostgresStore) getBy(ctx context.Context, where string, arg string) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, stripe_customer_id, subscription_active, created_at, updated_at
		FROM accounts
		WHERE ` + where

	var acct models.Account
	row := s.db.QueryRow(ctx, query, arg)
	err := row.Scan(
		&acct.ID, &acct.Email, &acct.PasswordHash, &acct.StripeCustomerID,
		&acct.SubscriptionActive, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

// Health checks database connectivity
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
