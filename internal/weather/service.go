package weather

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetCurrentWeatherByCity fetches current conditions for a city name.
	GetCurrentWeatherByCity(ctx context.Context, city string) (*Observation, error)

	// Name returns the provider name for logging.
	Name() string
}

// MetricsRecorder receives provider call and cache measurements.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// FlagSource answers runtime switches that affect lookups.
type FlagSource interface {
	IsCachedOnlyWeather(ctx context.Context) bool
}

const operationCurrent = "current_weather"

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a city's observation is served from cache (default: 10 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// Metrics is optional.
	Metrics MetricsRecorder

	// Flags is optional.
	Flags FlagSource

	// Store is an optional shared cache consulted on local misses.
	Store Store
}

// Service provides city weather lookups with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	metrics         MetricsRecorder
	flags           FlagSource
	store           Store

	mu              sync.RWMutex
	cache           map[string]*cachedObservation
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cachedObservation struct {
	observation *Observation
	fetchedAt   time.Time
	expiresAt   time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 1 * time.Hour
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		metrics:         cfg.Metrics,
		flags:           cfg.Flags,
		store:           cfg.Store,
		cache:           make(map[string]*cachedObservation),
		cleanupInterval: 5 * time.Minute,
	}
}

// GetCurrentWeather returns current conditions for a city.
// Uses cached data if available and not expired.
func (s *Service) GetCurrentWeather(ctx context.Context, city string) (*Observation, error) {
	city, err := NormalizeCity(city)
	if err != nil {
		return nil, err
	}
	key := cacheKey(city)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()

	if ok && time.Now().Before(cached.expiresAt) {
		s.recordCacheHit()
		return cached.observation, nil
	}

	stored, fetchedAt := s.loadStored(ctx, key)
	if stored != nil && time.Now().Before(fetchedAt.Add(s.cacheTTL)) {
		s.recordCacheHit()
		s.put(key, stored, fetchedAt)
		return stored, nil
	}
	s.recordCacheMiss()

	if s.flags != nil && s.flags.IsCachedOnlyWeather(ctx) {
		if obs := s.newestStale(cached, stored, fetchedAt, false); obs != nil {
			return obs, nil
		}
		return nil, ErrProviderUnavailable
	}

	return s.fetch(ctx, city, key)
}

// Refresh fetches a city from the provider regardless of cache freshness.
func (s *Service) Refresh(ctx context.Context, city string) (*Observation, error) {
	city, err := NormalizeCity(city)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, city, cacheKey(city))
}

// fetch calls the provider without holding the cache lock, so concurrent
// lookups for different cities proceed independently.
func (s *Service) fetch(ctx context.Context, city, key string) (*Observation, error) {
	s.logger.Debug().
		Str("city", city).
		Str("provider", s.provider.Name()).
		Msg("fetching weather from provider")

	start := time.Now()
	obs, err := s.provider.GetCurrentWeatherByCity(ctx, city)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), operationCurrent, time.Since(start), err)
	}

	if err != nil {
		if errors.Is(err, ErrCityNotFound) {
			s.logger.Info().Str("city", city).Msg("city not found")
			return nil, ErrCityNotFound
		}

		s.logger.Error().Err(err).
			Str("city", city).
			Msg("failed to fetch weather")

		s.mu.RLock()
		cached := s.cache[key]
		s.mu.RUnlock()
		stored, fetchedAt := s.loadStored(ctx, key)
		if stale := s.newestStale(cached, stored, fetchedAt, true); stale != nil {
			s.logger.Warn().
				Str("city", city).
				Msg("serving stale weather data due to provider error")
			return stale, nil
		}

		return nil, ErrProviderUnavailable
	}

	now := time.Now()
	s.put(key, obs, now)

	if s.store != nil {
		if err := s.store.Save(ctx, key, obs, now); err != nil {
			s.logger.Warn().Err(err).Str("city", city).Msg("failed to save observation to shared store")
		}
	}

	return obs, nil
}

func (s *Service) put(key string, obs *Observation, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = &cachedObservation{
		observation: obs,
		fetchedAt:   fetchedAt,
		expiresAt:   fetchedAt.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded(time.Now())
}

// loadStored reads the shared store. Store failures degrade to a miss.
func (s *Service) loadStored(ctx context.Context, key string) (*Observation, time.Time) {
	if s.store == nil {
		return nil, time.Time{}
	}
	obs, fetchedAt, err := s.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotStored) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to load observation from shared store")
		}
		return nil, time.Time{}
	}
	return obs, fetchedAt
}

// newestStale picks the most recently fetched of the local and shared entries.
// With bounded set, entries older than the stale-if-error window are ignored.
func (s *Service) newestStale(cached *cachedObservation, stored *Observation, storedAt time.Time, bounded bool) *Observation {
	var (
		best   *Observation
		bestAt time.Time
	)
	if cached != nil {
		best, bestAt = cached.observation, cached.fetchedAt
	}
	if stored != nil && (best == nil || storedAt.After(bestAt)) {
		best, bestAt = stored, storedAt
	}
	if best == nil {
		return nil
	}
	if bounded && !time.Now().Before(bestAt.Add(s.staleIfErrorTTL)) {
		return nil
	}
	return best
}

// cacheKey folds case so "London" and "london" share an entry.
func cacheKey(city string) string {
	return strings.ToLower(city)
}

// cleanupIfNeeded removes entries past the stale window. Caller holds s.mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired weather cache entries")
	}
}

func (s *Service) recordCacheHit() {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(s.provider.Name(), operationCurrent)
	}
}

func (s *Service) recordCacheMiss() {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.provider.Name(), operationCurrent)
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedObservation)
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}

	return CacheStats{
		Entries:      len(s.cache),
		FreshEntries: fresh,
		Provider:     s.provider.Name(),
		SharedStore:  s.store != nil,
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries      int
	FreshEntries int
	Provider     string
	SharedStore  bool
}
