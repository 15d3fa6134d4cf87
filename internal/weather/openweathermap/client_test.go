package openweathermap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeweather/vibeweather/internal/provider/resilience"
	"github.com/vibeweather/vibeweather/internal/weather"
	"github.com/vibeweather/vibeweather/internal/weather/openweathermap"
)

func newTestClient(serverURL string, registry *resilience.Registry) *openweathermap.Client {
	cfg := resilience.LookupClientConfig(openweathermap.ProviderName)
	cfg.Registry = registry
	return openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "****",
		BaseURL:    serverURL,
		HTTPClient: resilience.NewClient(cfg),
		Registry:   registry,
		Logger:     zerolog.Nop(),
	})
}

func TestClient_GetCurrentWeatherByCity(t *testing.T) {
	sunrise := time.Date(2026, 6, 1, 4, 43, 0, 0, time.UTC)
	sunset := time.Date(2026, 6, 1, 21, 6, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		assert.Equal(t, "****", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		response := map[string]interface{}{
			"coord": map[string]float64{
				"lat": 51.5085,
				"lon": -0.1257,
			},
			"weather": []map[string]interface{}{
				{
					"id":          501,
					"main":        "Rain",
					"description": "moderate rain",
					"icon":        "10d",
				},
			},
			"main": map[string]float64{
				"temp":       14.2,
				"feels_like": 13.6,
				"humidity":   81.0,
			},
			"wind": map[string]float64{
				"speed": 5.1,
			},
			"sys": map[string]int64{
				"sunrise": sunrise.Unix(),
				"sunset":  sunset.Unix(),
			},
			"dt":   time.Now().Unix(),
			"name": "London",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)

	obs, err := client.GetCurrentWeatherByCity(context.Background(), "London")
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, "London", obs.Name)
	assert.Equal(t, 51.5085, obs.Lat)
	assert.Equal(t, -0.1257, obs.Lon)
	assert.Equal(t, "rain", obs.Keyword)
	assert.Equal(t, weather.CategoryRain, obs.Category)
	assert.Equal(t, "moderate rain", obs.Description)
	assert.Equal(t, 14.2, obs.Temperature)
	assert.Equal(t, 13.6, obs.FeelsLike)
	assert.Equal(t, 81.0, obs.Humidity)
	assert.Equal(t, 5.1, obs.WindSpeed)
	assert.True(t, obs.Sunrise.Equal(sunrise))
	assert.True(t, obs.Sunset.Equal(sunset))
	assert.False(t, obs.FetchedAt.IsZero())
}

func TestClient_UnrecognizedConditionIsOther(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weather":[{"main":"Haze","description":"haze"}],"name":"Delhi"}`))
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL, nil).GetCurrentWeatherByCity(context.Background(), "Delhi")
	require.NoError(t, err)

	assert.Equal(t, "haze", obs.Keyword)
	assert.Equal(t, weather.CategoryOther, obs.Category)
	assert.True(t, obs.Sunrise.IsZero())
}

func TestClient_CityNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := newTestClient(server.URL, registry)

	_, err := client.GetCurrentWeatherByCity(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrCityNotFound)

	health := registry.Health(openweathermap.ProviderName)
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
}

func TestClient_ServerErrorRecordsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := newTestClient(server.URL, registry)

	_, err := client.GetCurrentWeatherByCity(context.Background(), "London")
	require.Error(t, err)
	assert.NotErrorIs(t, err, weather.ErrCityNotFound)
	assert.Contains(t, err.Error(), "502")

	health := registry.Health(openweathermap.ProviderName)
	require.NotNil(t, health)
	assert.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "502")
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, nil).GetCurrentWeatherByCity(context.Background(), "London")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestClient_Name(t *testing.T) {
	client := openweathermap.NewClient(openweathermap.ClientConfig{APIKey: "****"})
	assert.Equal(t, "openweathermap", client.Name())
}
