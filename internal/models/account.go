package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingEmail      = errors.New("account email is required")
	ErrMissingCredential = errors.New("account credential is required")
)

// Account represents a paying member. Email is the natural key; the Stripe
// customer id is immutable once set and accounts are never deleted, only
// deactivated.
type Account struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       []byte    `json:"-" db:"password_hash"`
	StripeCustomerID   string    `json:"stripe_customer_id" db:"stripe_customer_id"`
	SubscriptionActive bool      `json:"subscription_active" db:"subscription_active"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// NormalizeEmail lowercases and trims an email so lookups and upserts agree
// on the key regardless of how the payment provider reports it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the minimal shape required before persisting
func (a Account) Validate() error {
	if NormalizeEmail(a.Email) == "" {
		return ErrMissingEmail
	}
	if len(a.PasswordHash) == 0 {
		return ErrMissingCredential
	}
	return nil
}
