package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/vibeweather/vibeweather/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Name identifies the endpoint class in logs.
	Name string
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Rate limit classes. A limiter built from one of these is shared by every
// route it is attached to.
var (
	// AdminRateLimit applies to admin endpoints (10 req/min), keyed by subject.
	AdminRateLimit = RateLimitConfig{
		Name:         "admin",
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// ExpensiveRateLimit applies to endpoints that may reach the weather provider (30 req/min).
	ExpensiveRateLimit = RateLimitConfig{
		Name:         "lookup",
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to endpoints served from memory (100 req/min).
	StandardRateLimit = RateLimitConfig{
		Name:         "standard",
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP limits requests per client IP. Behind a proxy the IP comes
// from chi's RealIP middleware.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimit(cfg, httprate.KeyByRealIP)
}

// RateLimitBySubject limits requests per admin subject, so one operator is
// limited across every IP they use. Unauthenticated requests fall back to IP.
func RateLimitBySubject(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimit(cfg, keyBySubjectOrIP)
}

func rateLimit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(limitExceededHandler(cfg)),
	)
}

func keyBySubjectOrIP(r *http.Request) (string, error) {
	if sub := GetAdminSubject(r.Context()); sub != "" {
		return "admin:" + sub, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitExceededHandler writes an RFC7807 problem. httprate does not expose the
// exact reset time, so Retry-After is the full window.
func limitExceededHandler(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))
	detail := fmt.Sprintf("Rate limit exceeded: %d requests per %s. Please try again later.",
		cfg.RequestLimit, windowName(cfg.WindowLength))

	return func(w http.ResponseWriter, r *http.Request) {
		problem := models.NewTooManyRequests(GetRequestID(r.Context()), detail)
		problem.Instance = r.URL.Path

		w.Header().Set("Retry-After", retryAfter)
		problem.Write(w)
	}
}

func windowName(d time.Duration) string {
	switch d {
	case time.Second:
		return "second"
	case time.Minute:
		return "minute"
	case time.Hour:
		return "hour"
	default:
		return d.String()
	}
}
