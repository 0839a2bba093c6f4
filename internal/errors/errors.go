package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrSubscriptionInactive = errors.New("subscription inactive")
	ErrRateLimit            = errors.New("rate limit exceeded")
	ErrTimeout              = errors.New("operation timeout")
)

// ValidationError represents a missing or malformed request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// SignatureError represents a failed webhook signature verification.
// Events carrying one are never dispatched.
type SignatureError struct {
	Err error
}

func (e SignatureError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e SignatureError) Unwrap() error {
	return e.Err
}

// ProviderError wraps a failed call to an external collaborator (payment
// provider, database, mail). The detail is for logs only; callers receive a
// generic message.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("%s error during %s: %v", e.Provider, e.Operation, e.Err)
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// ProvisioningError represents a post-acknowledgment failure while creating
// or updating an account off a webhook event. The delivery is still
// acknowledged; these surface through logs and metrics only.
type ProvisioningError struct {
	Email      string
	CustomerID string
	Err        error
}

func (e ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning failed for customer %s: %v", e.CustomerID, e.Err)
}

func (e ProvisioningError) Unwrap() error {
	return e.Err
}
