package auth

import (
	"context"

	"github.com/membergate/membergate/internal/account"
	apperrors "github.com/membergate/membergate/internal/errors"
	"github.com/membergate/membergate/internal/logger"
	"github.com/membergate/membergate/internal/metrics"
	"github.com/membergate/membergate/internal/models"
	"github.com/membergate/membergate/internal/session"
	"github.com/membergate/membergate/internal/store"
)

// dummyHash absorbs a bcrypt comparison on the unknown-email path so response
// timing does not reveal whether an account exists.
var dummyHash, _ = account.HashPassword("membergate-dummy-credential")

// Service authenticates members against the account store and issues opaque
// session tokens.
type Service struct {
	store    store.Store
	sessions session.Store
}

func NewService(st store.Store, sessions session.Store) *Service {
	return &Service{store: st, sessions: sessions}
}

// Login validates a credential pair. Unknown email and wrong password both
// come back as ErrInvalidCredentials; a correct credential on a suspended
// account comes back as ErrSubscriptionInactive so the API layer can
// distinguish 401 from 403.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return "", apperrors.ValidationError{Field: "email", Message: "is required"}
	}
	if password == "" {
		return "", apperrors.ValidationError{Field: "password", Message: "is required"}
	}

	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		metrics.RecordLoginAttempt("error")
		return "", apperrors.ProviderError{Provider: "store", Operation: "login lookup", Err: err}
	}
	if acct == nil {
		account.CheckPassword(dummyHash, password)
		metrics.RecordLoginAttempt("invalid_credentials")
		return "", apperrors.ErrInvalidCredentials
	}

	if !account.CheckPassword(acct.PasswordHash, password) {
		metrics.RecordLoginAttempt("invalid_credentials")
		return "", apperrors.ErrInvalidCredentials
	}

	if !acct.SubscriptionActive {
		metrics.RecordLoginAttempt("inactive_subscription")
		return "", apperrors.ErrSubscriptionInactive
	}

	token, err := s.sessions.Create(ctx, acct.Email)
	if err != nil {
		metrics.RecordLoginAttempt("error")
		return "", apperrors.ProviderError{Provider: "session", Operation: "create", Err: err}
	}

	metrics.RecordLoginAttempt("success")
	logger.WithContext(ctx).Info("Member logged in", "email", acct.Email)
	return token, nil
}

// Resolve maps a session token back to its account, nil when the token is
// unknown or expired.
func (s *Service) Resolve(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, nil
	}
	email, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, apperrors.ProviderError{Provider: "session", Operation: "get", Err: err}
	}
	if email == "" {
		return nil, nil
	}
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.ProviderError{Provider: "store", Operation: "session lookup", Err: err}
	}
	return acct, nil
}
