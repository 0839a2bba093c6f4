package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordWebhookEvent(eventType, status string)
	RecordProvisioning(outcome string)
	RecordLoginAttempt(outcome string)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordWebhookEvent(eventType, status string) {}
func (m *NoOpMetrics) RecordProvisioning(outcome string)           {}
func (m *NoOpMetrics) RecordLoginAttempt(outcome string)           {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)        {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)      {}
func (m *NoOpMetrics) Handler() http.Handler                       { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init initializes metrics (no-op for now, can be extended with Prometheus)
func Init() {
	// For now, keep using no-op metrics
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordWebhookEvent records a verified webhook delivery and its dispatch status
func RecordWebhookEvent(eventType, status string) {
	globalMetrics.RecordWebhookEvent(eventType, status)
}

// RecordProvisioning records an account create/reactivate/revoke outcome.
// Provisioning failures are acknowledged to the provider, so this counter is
// the primary alerting signal for them.
func RecordProvisioning(outcome string) {
	globalMetrics.RecordProvisioning(outcome)
}

// RecordLoginAttempt records a login outcome
func RecordLoginAttempt(outcome string) {
	globalMetrics.RecordLoginAttempt(outcome)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}
