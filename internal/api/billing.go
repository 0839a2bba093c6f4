package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	apperrors "github.com/membergate/membergate/internal/errors"
	"github.com/membergate/membergate/internal/logger"
	"github.com/membergate/membergate/internal/metrics"
)

// CheckoutRequest is the body of a checkout session request
type CheckoutRequest struct {
	PriceID string `json:"priceId"`
}

// CheckoutResponse carries the created checkout session ID back to the client
type CheckoutResponse struct {
	ID string `json:"id"`
}

// createCheckoutSession creates a Stripe checkout session for a subscription
func (h *Handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID, err := h.billing.CreateCheckoutSession(ctx, req.PriceID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, CheckoutResponse{ID: sessionID})
}

// stripeWebhook receives billing events from Stripe. The signature is checked
// against the raw body before anything else; once an event verifies, the
// response is always 200 so Stripe does not retry events we failed to act on.
func (h *Handler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to read webhook body", "error", err)
		h.writeErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		sigErr := apperrors.SignatureError{Err: err}
		logger.WithContext(ctx).Warn("Webhook signature verification failed", "error", sigErr.Error())
		metrics.RecordWebhookEvent("unknown", "rejected")
		h.writeErrorResponse(w, r, http.StatusBadRequest, "Invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			logger.WithContext(ctx).Error("Failed to parse checkout session event", "event_id", event.ID, "error", err)
			metrics.RecordWebhookEvent(string(event.Type), "malformed")
			break
		}

		email := sess.CustomerEmail
		if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
			email = sess.CustomerDetails.Email
		}
		customerID := ""
		if sess.Customer != nil {
			customerID = sess.Customer.ID
		}

		if err := h.accounts.Provision(ctx, email, customerID); err != nil {
			logger.WithContext(ctx).Error("Provisioning failed", "event_id", event.ID, "error", err)
			metrics.RecordWebhookEvent(string(event.Type), "failed")
		} else {
			metrics.RecordWebhookEvent(string(event.Type), "processed")
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			logger.WithContext(ctx).Error("Failed to parse subscription event", "event_id", event.ID, "error", err)
			metrics.RecordWebhookEvent(string(event.Type), "malformed")
			break
		}

		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}

		if err := h.accounts.Revoke(ctx, customerID); err != nil {
			logger.WithContext(ctx).Error("Revocation failed", "event_id", event.ID, "error", err)
			metrics.RecordWebhookEvent(string(event.Type), "failed")
		} else {
			metrics.RecordWebhookEvent(string(event.Type), "processed")
		}

	default:
		logger.WithContext(ctx).Debug("Ignoring webhook event", "event_type", event.Type, "event_id", event.ID)
		metrics.RecordWebhookEvent(string(event.Type), "ignored")
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]bool{"received": true})
}
