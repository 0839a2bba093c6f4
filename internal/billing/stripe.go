package billing

import (
	"context"

	"github.com/membergate/membergate/config"
	apperrors "github.com/membergate/membergate/internal/errors"
	"github.com/membergate/membergate/internal/logger"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// SessionCreator creates a Stripe checkout session. Swappable for tests.
type SessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Service wraps the Stripe checkout API
type Service struct {
	cfg    config.BillingConfig
	create SessionCreator
}

func NewService(cfg config.BillingConfig) *Service {
	stripe.Key = cfg.StripeSecretKey
	return &Service{cfg: cfg, create: session.New}
}

// SetSessionCreator overrides the Stripe call, for tests
func (s *Service) SetSessionCreator(f SessionCreator) {
	s.create = f
}

// CreateCheckoutSession asks Stripe for a subscription-mode checkout session
// for the given price and returns its id. The checkout flow itself is
// entirely provider-hosted; we only hand out the session id.
func (s *Service) CreateCheckoutSession(ctx context.Context, priceID string) (string, error) {
	if priceID == "" {
		return "", apperrors.ValidationError{Field: "priceId", Message: "is required"}
	}

	if s.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ProviderTimeout)
		defer cancel()
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.cfg.CheckoutSuccessURL),
		CancelURL:  stripe.String(s.cfg.CheckoutCancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx

	sess, err := s.create(params)
	if err != nil {
		logger.WithContext(ctx).Error("Checkout session creation failed", "error", err, "price_id", priceID)
		return "", apperrors.ProviderError{Provider: "stripe", Operation: "create checkout session", Err: err}
	}
	return sess.ID, nil
}
