// Package main provides the entrypoint for the vibeweather cache warm worker.
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

	"github.com/vibeweather/vibeweather/internal/api/middleware"
	"github.com/vibeweather/vibeweather/internal/database"
	"github.com/vibeweather/vibeweather/internal/provider/resilience"
	"github.com/vibeweather/vibeweather/internal/telemetry"
	"github.com/vibeweather/vibeweather/internal/weather"
	"github.com/vibeweather/vibeweather/internal/weather/openweathermap"
	"github.com/vibeweather/vibeweather/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "vibeweather-worker"

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
		Msg("starting vibeweather worker")

	// Worker also exposes health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	providerMetrics, err := middleware.NewProviderMetrics(openweathermap.ProviderName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Without a shared store the warm runs only exercise the provider.
	var pool *pgxpool.Pool
	var store weather.Store
	if database.Configured() {
		pool, err = database.Connect(ctx, database.ConfigFromEnv())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		store = weather.NewPostgresStore(pool)
	} else {
		log.Warn().Msg("no database configured - warmed observations are not shared with the API")
	}

	// Background refreshes can afford retries.
	clientConfig := resilience.DefaultClientConfig(openweathermap.ProviderName)
	clientConfig.Logger = &log
	owmClient := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     os.Getenv("OPENWEATHER_API_KEY"),
		BaseURL:    os.Getenv("OPENWEATHER_BASE_URL"),
		HTTPClient: resilience.NewClient(clientConfig),
		Logger:     log,
	})

	rps := 1.0
	if v, err := strconv.ParseFloat(os.Getenv("OPENWEATHER_RPS"), 64); err == nil && v > 0 {
		rps = v
	}

	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: weather.NewRateLimitedProvider(owmClient, rps, 1),
		Logger:   log,
		Metrics:  providerMetrics,
		Store:    store,
	})

	warmConfig := worker.DefaultWarmConfig()
	if cities := os.Getenv("WARM_CITIES"); cities != "" {
		warmConfig.Targets = worker.TargetsFromList(cities)
	}
	if d, err := time.ParseDuration(os.Getenv("WARM_INTERVAL")); err == nil && d > 0 {
		warmConfig.Interval = d
	}

	warmJob := worker.NewWarmJob(worker.WarmJobConfig{
		Config:    warmConfig,
		Logger:    log,
		Refresher: weatherService,
	})
	dispatcher := worker.NewDispatcher(warmJob, log)

	server := &http.Server{
		Addr: ":" + port,
		Handler: worker.NewHTTPHandler(worker.HTTPConfig{
			Version:    Version,
			WarmJob:    warmJob,
			Dispatcher: dispatcher,
			Logger:     log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Pub/Sub drives the job when configured; otherwise fall back to a ticker.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID != "" && subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			Dispatcher:       dispatcher,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Info().
			Dur("interval", warmJob.Config().Interval).
			Strs("cities", warmJob.Config().Cities()).
			Msg("pubsub not configured - warming on a timer")
		go warmJob.RunEvery(ctx, 0)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
