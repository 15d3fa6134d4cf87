package weather

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a request budget.
// OpenWeatherMap's free tier allows 60 calls per minute.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider creates a rate limited provider.
// rps may be fractional; burst is the maximum number of calls let through at once.
func NewRateLimitedProvider(provider Provider, rps float64, burst int) *RateLimitedProvider {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GetCurrentWeatherByCity waits for the limiter before forwarding the call.
func (r *RateLimitedProvider) GetCurrentWeatherByCity(ctx context.Context, city string) (*Observation, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.GetCurrentWeatherByCity(ctx, city)
}

// Name returns the wrapped provider's name so cache keys and metrics stay stable.
func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}
