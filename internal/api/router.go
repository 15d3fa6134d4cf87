// Package api provides the HTTP API for vibeweather.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/api/handler"
	"github.com/vibeweather/vibeweather/internal/api/middleware"
	"github.com/vibeweather/vibeweather/internal/featureflags"
	"github.com/vibeweather/vibeweather/internal/particles"
	"github.com/vibeweather/vibeweather/internal/provider/resilience"
	"github.com/vibeweather/vibeweather/internal/session"
	"github.com/vibeweather/vibeweather/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// TokenValidator guards the admin and status endpoints.
	TokenValidator middleware.TokenValidator

	FeatureFlagService *featureflags.Service
	WeatherService     *weather.Service
	SessionManager     *session.Manager
	ProviderRegistry   *resilience.Registry
	Generator          *particles.Generator

	// Database is pinged by the readiness check (optional).
	Database handler.Pinger

	// AllowedOrigins lists browser origins allowed to call the API. Empty disables CORS.
	AllowedOrigins []string

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "vibeweather-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.LimitBody(middleware.DefaultBodyLimit))
	r.Use(middleware.ContentTypeJSON)

	// Nil pointers must not become non-nil interfaces.
	var flags session.FlagSource
	if cfg.FeatureFlagService != nil {
		flags = cfg.FeatureFlagService
	}
	var sessions interface{ Count() int }
	if cfg.SessionManager != nil {
		sessions = cfg.SessionManager
	}

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.ProviderRegistry,
		Weather:   cfg.WeatherService,
		Sessions:  sessions,
		Flags:     cfg.FeatureFlagService,
		Database:  cfg.Database,
	})
	weatherHandler := handler.NewWeatherHandler(handler.WeatherHandlerConfig{
		Lookup:    cfg.WeatherService,
		Flags:     flags,
		Generator: cfg.Generator,
		Logger:    cfg.Logger,
	})
	sessionHandler := handler.NewSessionHandler(cfg.SessionManager)
	metadataHandler := handler.NewMetadataHandler()
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

	adminAuth := middleware.AdminAuth(cfg.TokenValidator)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint exposes provider errors
			r.With(adminAuth).Get("/status", opsHandler.SystemStatus)
		})

		// Metadata endpoints (public) - standard rate limiting
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/enums", metadataHandler.GetEnums)
		})

		// Weather lookups reach the provider - strict rate limiting
		r.With(expensiveRateLimit).Get("/weather", weatherHandler.GetWeather)

		// Classifier only - standard rate limiting
		r.With(standardRateLimit).Get("/themes/classify", weatherHandler.Classify)

		// Widget sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Use(middleware.RequireJSON)
			r.With(expensiveRateLimit).Post("/", sessionHandler.CreateSession)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", sessionHandler.GetSession)
				r.With(standardRateLimit).Delete("/", sessionHandler.DeleteSession)
				r.With(expensiveRateLimit).Post("/search", sessionHandler.Search)
			})
		})

		// Admin endpoints (admin token) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth)
			r.Use(middleware.RateLimitBySubject(middleware.AdminRateLimit))
			r.Use(middleware.RequireJSON)

			// Feature flags management
			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
				r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
			})
		})
	})

	return r
}
