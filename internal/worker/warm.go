package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/weather"
)

// Refresher forces a provider fetch for a city. *weather.Service satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, city string) (*weather.Observation, error)
}

// WarmJob keeps the weather cache populated for popular cities.
type WarmJob struct {
	config    WarmConfig
	logger    zerolog.Logger
	refresher Refresher

	metrics *WarmMetrics
}

// WarmMetrics tracks warm job statistics.
type WarmMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns     int64
	CitiesWarmed  int64
	CitiesFailed  int64
	CitiesUnknown int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config    WarmConfig
	Logger    zerolog.Logger
	Refresher Refresher
}

// NewWarmJob creates a new cache warm job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	config := cfg.Config
	defaults := DefaultWarmConfig()
	if len(config.Targets) == 0 {
		config.Targets = defaults.Targets
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}

	return &WarmJob{
		config:    config,
		logger:    cfg.Logger,
		refresher: cfg.Refresher,
		metrics:   &WarmMetrics{},
	}
}

// Config returns the effective configuration.
func (j *WarmJob) Config() WarmConfig {
	return j.config
}

// WarmResult contains the result of a warm run.
type WarmResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalCities int
	Successful  int
	Failed      int
	Skipped     int
	Errors      []WarmError
}

// WarmError represents a failed city lookup.
type WarmError struct {
	City     string
	NotFound bool
	Error    string
}

// Run warms every configured city.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	return j.RunCities(ctx, j.config.Cities())
}

// RunCities warms the given cities with bounded concurrency. Cities not
// reached before ctx is cancelled are counted as skipped.
func (j *WarmJob) RunCities(ctx context.Context, cities []string) *WarmResult {
	startTime := time.Now()
	result := &WarmResult{
		StartTime:   startTime,
		TotalCities: len(cities),
	}

	j.logger.Info().
		Int("total_cities", result.TotalCities).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache warm job")

	// Create work channels
	citiesChan := make(chan string, len(cities))
	resultsChan := make(chan cityResult, len(cities))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, citiesChan, resultsChan)
		}()
	}

	for _, city := range cities {
		citiesChan <- city
	}
	close(citiesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	for cr := range resultsChan {
		if cr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, WarmError{
			City:     cr.city,
			NotFound: errors.Is(cr.err, weather.ErrCityNotFound),
			Error:    cr.err.Error(),
		})
	}
	result.Skipped = result.TotalCities - result.Successful - result.Failed

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("cache warm job completed")

	return result
}

type cityResult struct {
	city string
	err  error
}

func (j *WarmJob) warmWorker(ctx context.Context, cities <-chan string, results chan<- cityResult) {
	for city := range cities {
		select {
		case <-ctx.Done():
			return
		default:
			results <- cityResult{city: city, err: j.warmCity(ctx, city)}
		}
	}
}

func (j *WarmJob) warmCity(ctx context.Context, city string) error {
	if j.refresher == nil {
		return nil
	}

	cityCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if _, err := j.refresher.Refresh(cityCtx, city); err != nil {
		j.logger.Warn().Err(err).Str("city", city).Msg("failed to warm city")
		return err
	}
	return nil
}

// RunEvery runs the job immediately and then on every interval until ctx is done.
// It is the fallback trigger when no Pub/Sub subscription is configured.
func (j *WarmJob) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = j.config.Interval
	}

	j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("warm scheduler stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	var unknown int64
	for _, e := range result.Errors {
		if e.NotFound {
			unknown++
		}
	}

	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.CitiesWarmed += int64(result.Successful)
	j.metrics.CitiesFailed += int64(result.Failed)
	j.metrics.CitiesUnknown += unknown
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		CitiesWarmed:    j.metrics.CitiesWarmed,
		CitiesFailed:    j.metrics.CitiesFailed,
		CitiesUnknown:   j.metrics.CitiesUnknown,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"cities_warmed":     m.CitiesWarmed,
		"cities_failed":     m.CitiesFailed,
		"cities_unknown":    m.CitiesUnknown,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
