package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/membergate/membergate/internal/logger"
	"github.com/membergate/membergate/internal/metrics"
	"golang.org/x/time/rate"
)

// Logging provides structured logging for HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Add request ID to context
		requestID := middleware.GetReqID(r.Context())
		ctx := context.WithValue(r.Context(), "request_id", requestID) //nolint:staticcheck // string context key used intentionally for cross-package simplicity
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			duration := time.Since(start)

			logger.WithContext(ctx).Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", duration.Milliseconds(),
				"bytes", ww.BytesWritten(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Metrics records HTTP metrics
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			metrics.RecordHTTPRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}

// Security adds security headers
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the host portion of the remote address
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// write429 writes Too Many Requests
func write429(w http.ResponseWriter, resetSec int) {
	if resetSec > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(resetSec))
	}
	http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
}

// LoginAllower answers whether another login attempt from a client fits in
// the current window. The Redis ratelimit.Manager satisfies this.
type LoginAllower interface {
	Allow(ctx context.Context, clientIP string) (allowed bool, resetSec int, err error)
}

// LoginRateLimit throttles login attempts per client IP. Limiter errors fail
// open: a broken Redis must not lock members out.
func LoginRateLimit(limiter LoginAllower) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			allowed, reset, err := limiter.Allow(r.Context(), clientIP(r))
			if err == nil && !allowed {
				write429(w, reset)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LocalLoginLimiter is the in-memory fallback when Redis is not configured.
// One token bucket per client IP.
type LocalLoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewLocalLoginLimiter(attemptsPerMinute int) *LocalLoginLimiter {
	if attemptsPerMinute < 1 {
		attemptsPerMinute = 1
	}
	return &LocalLoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(attemptsPerMinute)),
		burst:    attemptsPerMinute,
	}
}

func (l *LocalLoginLimiter) Allow(ctx context.Context, clientIP string) (bool, int, error) {
	l.mu.Lock()
	lim, exists := l.limiters[clientIP]
	if !exists {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[clientIP] = lim
	}
	l.mu.Unlock()

	if lim.Allow() {
		return true, 0, nil
	}
	return false, 60, nil
}
