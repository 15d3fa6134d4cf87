package weather_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeweather/vibeweather/internal/weather"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		keyword  string
		expected weather.Category
	}{
		{"Clear", weather.CategoryClear},
		{"clear", weather.CategoryClear},
		{"RAIN", weather.CategoryRain},
		{"Snow", weather.CategorySnow},
		{"Clouds", weather.CategoryClouds},
		{"Thunderstorm", weather.CategoryThunderstorm},
		{"Mist", weather.CategoryMist},
		{"Fog", weather.CategoryFog},
		{" fog ", weather.CategoryFog},
		{"Drizzle", weather.CategoryOther},
		{"Haze", weather.CategoryOther},
		{"", weather.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			assert.Equal(t, tt.expected, weather.ParseCategory(tt.keyword))
		})
	}
}

func TestCategory_IsFoggy(t *testing.T) {
	assert.True(t, weather.CategoryMist.IsFoggy())
	assert.True(t, weather.CategoryFog.IsFoggy())
	assert.False(t, weather.CategoryClouds.IsFoggy())
}

func TestIsDaytime(t *testing.T) {
	sunrise := time.Date(2026, 6, 1, 4, 43, 0, 0, time.UTC)
	sunset := time.Date(2026, 6, 1, 21, 6, 0, 0, time.UTC)
	obs := &weather.Observation{Sunrise: sunrise, Sunset: sunset}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"before sunrise", sunrise.Add(-time.Minute), false},
		{"at sunrise", sunrise, true},
		{"midday", sunrise.Add(8 * time.Hour), true},
		{"just before sunset", sunset.Add(-time.Second), true},
		{"at sunset", sunset, false},
		{"night", sunset.Add(3 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, weather.IsDaytime(obs, tt.now))
		})
	}
}

func TestIsDaytime_MissingSunTimes(t *testing.T) {
	assert.True(t, weather.IsDaytime(nil, time.Now()))
	assert.True(t, weather.IsDaytime(&weather.Observation{}, time.Now()))
}

func TestNormalizeCity(t *testing.T) {
	city, err := weather.NormalizeCity("  New   York ")
	require.NoError(t, err)
	assert.Equal(t, "New York", city)

	_, err = weather.NormalizeCity("   ")
	assert.ErrorIs(t, err, weather.ErrInvalidCity)
}
