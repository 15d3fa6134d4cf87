package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/api/models"
	"github.com/vibeweather/vibeweather/internal/api/response"
	"github.com/vibeweather/vibeweather/internal/particles"
	"github.com/vibeweather/vibeweather/internal/scene"
	"github.com/vibeweather/vibeweather/internal/session"
	"github.com/vibeweather/vibeweather/internal/theme"
	"github.com/vibeweather/vibeweather/internal/weather"
)

// lookupRetryAfter is advertised when the provider is unavailable.
const lookupRetryAfter = 30 * time.Second

// WeatherHandlerConfig holds configuration for the weather handler.
type WeatherHandlerConfig struct {
	Lookup    session.Lookup
	Flags     session.FlagSource
	Generator *particles.Generator
	Logger    zerolog.Logger
	Now       func() time.Time
}

// WeatherHandler handles stateless weather and theme endpoints.
type WeatherHandler struct {
	lookup session.Lookup
	flags  session.FlagSource
	gen    *particles.Generator
	logger zerolog.Logger
	now    func() time.Time
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(cfg WeatherHandlerConfig) *WeatherHandler {
	gen := cfg.Generator
	if gen == nil {
		gen = particles.NewGenerator(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &WeatherHandler{
		lookup: cfg.Lookup,
		flags:  cfg.Flags,
		gen:    gen,
		logger: cfg.Logger,
		now:    now,
	}
}

// GetWeather handles GET /v1/weather?city= - observation, theme and a fresh scene.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city, err := weather.NormalizeCity(r.URL.Query().Get("city"))
	if err != nil {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "city", Message: "city is required", Code: "REQUIRED"},
		})
		return
	}

	obs, err := h.lookup.GetCurrentWeather(r.Context(), city)
	if err != nil {
		switch {
		case errors.Is(err, weather.ErrCityNotFound):
			h.logger.Info().Str("city", city).Msg("city not found")
			response.NotFound(w, r, session.LookupFailedMessage)
		default:
			h.logger.Warn().Err(err).Str("city", city).Msg("weather lookup failed")
			response.ServiceUnavailable(w, r, session.LookupFailedMessage, lookupRetryAfter)
		}
		return
	}

	isDay := weather.IsDaytime(obs, h.now())
	t := theme.Classify(theme.InputFromObservation(obs), isDay)

	mount := h.mount(r.Context())
	defer mount.Unmount()

	response.JSON(w, r, http.StatusOK, models.WeatherResponse{
		Observation: *toObservation(obs),
		IsDay:       isDay,
		Theme:       toTheme(t),
		Scene:       toScene(mount.Render(t.Effect)),
	})
}

// Classify handles GET /v1/themes/classify?category=&description=&day= - classifier only.
func (h *WeatherHandler) Classify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	isDay := true
	if raw := strings.TrimSpace(q.Get("day")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, r, "validation error", []models.FieldError{
				{Field: "day", Message: "day must be a boolean", Code: "INVALID"},
			})
			return
		}
		isDay = parsed
	}

	in := theme.Input{
		Category:    q.Get("category"),
		Description: q.Get("description"),
	}

	response.JSON(w, r, http.StatusOK, models.ClassifyResponse{
		Theme: toTheme(theme.Classify(in, isDay)),
		Rule:  theme.RuleName(in, isDay),
	})
}

func (h *WeatherHandler) mount(ctx context.Context) *scene.Mount {
	opts := scene.Options{Generator: h.gen}
	if h.flags != nil {
		opts.ForceSplat = h.flags.IsForceRainSplat(ctx)
		opts.DisableParticles = h.flags.IsParticlesDisabled(ctx)
	}
	return scene.NewMount(opts)
}
