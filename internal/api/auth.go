package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/membergate/membergate/internal/logger"
	"github.com/membergate/membergate/internal/metrics"
)

// LoginRequest is the body of a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// MeResponse describes the account bound to a session token
type MeResponse struct {
	Email              string `json:"email"`
	SubscriptionActive bool   `json:"subscription_active"`
}

// login authenticates an account and issues a session token
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   token,
	})
}

// meHandler resolves the bearer token to the account it belongs to
func (h *Handler) meHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		h.writeErrorResponse(w, r, http.StatusUnauthorized, "Missing bearer token")
		return
	}

	acct, err := h.auth.Resolve(ctx, token)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to resolve session", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if acct == nil {
		metrics.RecordLoginAttempt("expired_session")
		h.writeErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired session")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, MeResponse{
		Email:              acct.Email,
		SubscriptionActive: acct.SubscriptionActive,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
