package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/membergate/membergate/internal/account"
	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/internal/billing"
	apperrors "github.com/membergate/membergate/internal/errors"
	middlewares "github.com/membergate/membergate/internal/middleware"
	"github.com/membergate/membergate/internal/store"
)

// Handler handles HTTP requests for the API
type Handler struct {
	store         store.Store
	billing       *billing.Service
	accounts      *account.Service
	auth          *auth.Service
	webhookSecret string
	loginLimiter  middlewares.LoginAllower
	version       string
	buildTime     string
	gitCommit     string
	startTime     time.Time
}

// NewHandler creates a new API handler
func NewHandler(st store.Store, billingSvc *billing.Service, accounts *account.Service, authSvc *auth.Service, webhookSecret, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		store:         st,
		billing:       billingSvc,
		accounts:      accounts,
		auth:          authSvc,
		webhookSecret: webhookSecret,
		version:       version,
		buildTime:     buildTime,
		gitCommit:     gitCommit,
		startTime:     time.Now(),
	}
}

// SetLoginLimiter installs a per-client login throttle
func (h *Handler) SetLoginLimiter(l middlewares.LoginAllower) {
	h.loginLimiter = l
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/create-checkout-session", h.createCheckoutSession)
		r.Post("/webhook", h.stripeWebhook)
		r.With(middlewares.LoginRateLimit(h.loginLimiter)).Post("/login", h.login)
		r.Get("/me", h.meHandler)
	})

	// Health check endpoints
	r.Get("/health", h.healthHandler)
	r.Get("/health/ready", h.readinessHandler)
	r.Get("/health/live", h.livenessHandler)

	// System info
	r.Get("/version", h.versionHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"store": "ok",
	}

	statusCode := http.StatusOK

	// Check store health
	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     message,
		Timestamp: time.Now().UTC(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// writeServiceError maps an application error onto the HTTP surface. Upstream
// detail never reaches the caller; it is already logged where it happened.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.writeErrorResponse(w, r, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		h.writeErrorResponse(w, r, http.StatusUnauthorized, apperrors.ErrInvalidCredentials.Error())
	case errors.Is(err, apperrors.ErrSubscriptionInactive):
		h.writeErrorResponse(w, r, http.StatusForbidden, "subscription is not active")
	default:
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

func validationMessage(err error) string {
	var ve apperrors.ValidationError
	if errors.As(err, &ve) {
		return ve.Field + " " + ve.Message
	}
	return apperrors.ErrInvalidInput.Error()
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
