// Package main provides the entrypoint for the vibeweather API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/api"
	"github.com/vibeweather/vibeweather/internal/api/handler"
	"github.com/vibeweather/vibeweather/internal/api/middleware"
	"github.com/vibeweather/vibeweather/internal/auth"
	"github.com/vibeweather/vibeweather/internal/database"
	"github.com/vibeweather/vibeweather/internal/featureflags"
	"github.com/vibeweather/vibeweather/internal/particles"
	"github.com/vibeweather/vibeweather/internal/provider/resilience"
	"github.com/vibeweather/vibeweather/internal/session"
	"github.com/vibeweather/vibeweather/internal/telemetry"
	"github.com/vibeweather/vibeweather/internal/weather"
	"github.com/vibeweather/vibeweather/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "vibeweather-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting vibeweather API")

	port := getEnvOrDefault("APP_PORT", "8080")

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryConfig := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryConfig.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryConfig.OTLPEndpoint).
			Float64("sample_ratio", telemetryConfig.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics(openweathermap.ProviderName)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Connect to database (optional)
	var pool *pgxpool.Pool
	if database.Configured() {
		dbConfig := database.ConfigFromEnv()
		pool, err = database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		log.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("database connected")
	} else {
		log.Warn().Msg("no database configured - sessions and feature flags are kept in memory")
	}

	// Initialize feature flags repository and service
	var ffRepo featureflags.Repository = featureflags.NewInMemoryRepository()
	if pool != nil {
		ffRepo = featureflags.NewPostgresRepository(pool)
	}
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Msg("feature flags service initialized")

	// Initialize weather provider with circuit breaker, status registry and request budget
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("OPENWEATHER_API_KEY not set - lookups will fail")
	}

	registry := resilience.NewRegistry()
	clientConfig := resilience.LookupClientConfig(openweathermap.ProviderName)
	clientConfig.Registry = registry
	clientConfig.Logger = &log

	owmClient := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     apiKey,
		BaseURL:    os.Getenv("OPENWEATHER_BASE_URL"),
		HTTPClient: resilience.NewClient(clientConfig),
		Registry:   registry,
		Logger:     log,
	})

	rps := getEnvFloat("OPENWEATHER_RPS", 1)
	provider := weather.NewRateLimitedProvider(owmClient, rps, int(rps)+1)

	var store weather.Store
	if pool != nil {
		store = weather.NewPostgresStore(pool)
	}

	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   log,
		CacheTTL: getEnvDuration("WEATHER_CACHE_TTL", 10*time.Minute),
		Metrics:  providerMetrics,
		Flags:    ffService,
		Store:    store,
	})
	log.Info().
		Float64("rps", rps).
		Bool("shared_store", store != nil).
		Msg("weather service initialized")

	// Initialize session manager
	var sessionRepo session.Repository = session.NewInMemoryRepository()
	if pool != nil {
		sessionRepo = session.NewPostgresRepository(pool)
	}
	generator := particles.NewGenerator(nil)
	sessionManager := session.NewManager(session.ManagerConfig{
		Lookup:     weatherService,
		Repository: sessionRepo,
		Flags:      ffService,
		Generator:  generator,
		Logger:     log,
		IdleTTL:    getEnvDuration("SESSION_IDLE_TTL", session.DefaultIdleTTL),
		MaxLive:    getEnvInt("SESSION_MAX_LIVE", session.DefaultMaxLive),
	})
	evictCtx, stopEvictor := context.WithCancel(ctx)
	defer stopEvictor()
	go sessionManager.RunEvictor(evictCtx, time.Minute)
	log.Info().Msg("session manager initialized")

	// Initialize admin token validation
	jwtConfig := auth.ConfigFromEnv()
	if jwtConfig.SigningKey == auth.DevSigningKey {
		log.Warn().Msg("using default admin JWT signing key - not secure for production")
	}
	jwtService := auth.NewJWTService(jwtConfig)

	var dbPinger handler.Pinger
	if pool != nil {
		dbPinger = pool
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		TokenValidator:     jwtService,
		FeatureFlagService: ffService,
		WeatherService:     weatherService,
		SessionManager:     sessionManager,
		ProviderRegistry:   registry,
		Generator:          generator,
		Database:           dbPinger,
		AllowedOrigins:     middleware.ParseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RequireTLS:         os.Getenv("REQUIRE_TLS") == "true",
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().
		Int("live_sessions", sessionManager.Count()).
		Msg("server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
