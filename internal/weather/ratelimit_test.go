package weather_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeweather/vibeweather/internal/weather"
)

func TestRateLimitedProvider_Forwards(t *testing.T) {
	provider := newMockProvider()
	limited := weather.NewRateLimitedProvider(provider, 100, 5)

	obs, err := limited.GetCurrentWeatherByCity(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", obs.Name)
	assert.Equal(t, "mock", limited.Name())
	assert.Equal(t, 1, provider.getCallCount())
}

func TestRateLimitedProvider_CanceledWait(t *testing.T) {
	provider := newMockProvider()
	limited := weather.NewRateLimitedProvider(provider, 0.001, 1)

	// Drain the single burst token.
	_, err := limited.GetCurrentWeatherByCity(context.Background(), "Oslo")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = limited.GetCurrentWeatherByCity(ctx, "Oslo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait canceled")
	assert.Equal(t, 1, provider.getCallCount())
}
