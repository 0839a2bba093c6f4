package account

import (
	"context"

	apperrors "github.com/membergate/membergate/internal/errors"
	"github.com/membergate/membergate/internal/logger"
	"github.com/membergate/membergate/internal/metrics"
	"github.com/membergate/membergate/internal/models"
	"github.com/membergate/membergate/internal/store"
)

// Notifier delivers a freshly generated credential out-of-band. Dispatch must
// not block; delivery failures never affect provisioning.
type Notifier interface {
	Dispatch(email, password string)
}

// Service provisions member accounts off verified webhook events and revokes
// access on cancellation. Driven exclusively by the webhook dispatcher; every
// operation is idempotent under provider redelivery.
type Service struct {
	store    store.Store
	notifier Notifier
}

func NewService(st store.Store, notifier Notifier) *Service {
	return &Service{store: st, notifier: notifier}
}

// Provision creates an active account for a completed checkout, or
// reactivates the existing one. A temporary credential is generated up front
// but only survives when the upsert actually created a row; on redelivery the
// stored credential stays untouched and no email goes out.
func (s *Service) Provision(ctx context.Context, email, customerID string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		metrics.RecordProvisioning("missing_email")
		return apperrors.ProvisioningError{CustomerID: customerID, Err: models.ErrMissingEmail}
	}

	password, err := GenerateTemporaryPassword()
	if err != nil {
		metrics.RecordProvisioning("error")
		return apperrors.ProvisioningError{Email: email, CustomerID: customerID, Err: err}
	}
	hash, err := HashPassword(password)
	if err != nil {
		metrics.RecordProvisioning("error")
		return apperrors.ProvisioningError{Email: email, CustomerID: customerID, Err: err}
	}

	created, err := s.store.UpsertActive(ctx, email, customerID, hash)
	if err != nil {
		metrics.RecordProvisioning("error")
		return apperrors.ProvisioningError{Email: email, CustomerID: customerID, Err: err}
	}

	if created {
		metrics.RecordProvisioning("created")
		logger.WithContext(ctx).Info("Account provisioned", "email", email, "customer_id", customerID)
		if s.notifier != nil {
			s.notifier.Dispatch(email, password)
		}
		return nil
	}

	metrics.RecordProvisioning("reactivated")
	logger.WithContext(ctx).Info("Account reactivated", "email", email, "customer_id", customerID)
	return nil
}

// Revoke marks the account for a canceled subscription inactive. An unknown
// customer id is a logged no-op so redeliveries and out-of-order events stay
// harmless.
func (s *Service) Revoke(ctx context.Context, customerID string) error {
	if customerID == "" {
		metrics.RecordProvisioning("revoke_missing_customer")
		logger.WithContext(ctx).Warn("Subscription deleted event without customer id")
		return nil
	}

	found, err := s.store.Deactivate(ctx, customerID)
	if err != nil {
		metrics.RecordProvisioning("error")
		return apperrors.ProvisioningError{CustomerID: customerID, Err: err}
	}
	if !found {
		metrics.RecordProvisioning("revoke_unknown_customer")
		logger.WithContext(ctx).Warn("Subscription deleted for unknown customer", "customer_id", customerID)
		return nil
	}

	metrics.RecordProvisioning("revoked")
	logger.WithContext(ctx).Info("Account access revoked", "customer_id", customerID)
	return nil
}
