package featureflags

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const reloadKey = "snapshot"

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL bounds how long a loaded snapshot is trusted. Default 1 minute.
	CacheTTL time.Duration

	// ReloadTimeout bounds one repository reload. Default 2 seconds.
	ReloadTimeout time.Duration

	// Defaults replaces the compiled-in defaults (tests).
	Defaults map[string]bool

	Now func() time.Time
}

// Service evaluates flags from a periodically reloaded snapshot of the
// repository. A failed reload keeps serving the previous snapshot.
// Concurrent readers of a stale snapshot share a single reload.
type Service struct {
	repo          Repository
	logger        zerolog.Logger
	cacheTTL      time.Duration
	reloadTimeout time.Duration
	defaults      map[string]bool
	now           func() time.Time

	reloads singleflight.Group

	mu       sync.RWMutex
	snapshot map[string]*Flag
	loadedAt time.Time

	// generation is bumped by InvalidateCache so a reload that raced with an
	// update does not mark its result fresh.
	generation uint64
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:          cfg.Repository,
		logger:        cfg.Logger,
		cacheTTL:      cfg.CacheTTL,
		reloadTimeout: cfg.ReloadTimeout,
		defaults:      cfg.Defaults,
		now:           cfg.Now,
	}
	if s.repo == nil {
		s.repo = NewInMemoryRepository()
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = time.Minute
	}
	if s.reloadTimeout <= 0 {
		s.reloadTimeout = 2 * time.Second
	}
	if s.defaults == nil {
		s.defaults = Defaults()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Flags returns every known flag, stored values over defaults, ordered by key.
func (s *Service) Flags(ctx context.Context) []*Flag {
	snapshot := s.load(ctx)

	out := make([]*Flag, 0, len(s.defaults))
	for _, key := range Keys() {
		if f := s.resolve(snapshot, key); f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Flag returns the current state of key, or nil for unknown keys.
func (s *Service) Flag(ctx context.Context, key string) *Flag {
	return s.resolve(s.load(ctx), key)
}

// IsEnabled reports whether key is switched on. Unknown keys are off.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	f := s.Flag(ctx, key)
	return f != nil && f.Enabled
}

// Update stores values for the given flags on behalf of updatedBy. All keys
// must be known; nothing is written otherwise.
func (s *Service) Update(ctx context.Context, updatedBy string, values map[string]bool) error {
	now := s.now().UTC()
	flags := make([]*Flag, 0, len(values))
	for _, key := range Keys() {
		if enabled, ok := values[key]; ok {
			flags = append(flags, &Flag{Key: key, Enabled: enabled, UpdatedAt: now, UpdatedBy: updatedBy})
		}
	}
	if len(flags) != len(values) {
		for key := range values {
			if !Known(key) {
				return fmt.Errorf("%w: %s", ErrUnknownFlag, key)
			}
		}
	}

	if err := s.repo.Upsert(ctx, flags...); err != nil {
		return fmt.Errorf("updating flags: %w", err)
	}
	s.InvalidateCache()
	return nil
}

// Reset drops the stored value of key so its default applies again.
// Resetting a flag that is already at its default is not an error.
func (s *Service) Reset(ctx context.Context, key string) error {
	if !Known(key) {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, key)
	}
	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrFlagNotFound) {
		return fmt.Errorf("resetting flag %s: %w", key, err)
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache forces the next read to reload from the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadedAt = time.Time{}
	s.generation++
}

func (s *Service) resolve(snapshot map[string]*Flag, key string) *Flag {
	def, known := s.defaults[key]
	if !known {
		return nil
	}
	if f, ok := snapshot[key]; ok {
		out := *f
		return &out
	}
	return &Flag{Key: key, Enabled: def}
}

func (s *Service) load(ctx context.Context) map[string]*Flag {
	s.mu.RLock()
	snapshot, fresh := s.snapshot, s.fresh()
	s.mu.RUnlock()
	if fresh {
		return snapshot
	}

	v, _, _ := s.reloads.Do(reloadKey, func() (interface{}, error) {
		return s.reload(ctx), nil
	})
	return v.(map[string]*Flag)
}

// reload reads the repository without holding the lock. The read is detached
// from the caller: one cancelled request must not fail a reload other readers share.
func (s *Service) reload(ctx context.Context) map[string]*Flag {
	s.mu.RLock()
	if s.fresh() {
		snapshot := s.snapshot
		s.mu.RUnlock()
		return snapshot
	}
	generation := s.generation
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.reloadTimeout)
	defer cancel()
	flags, err := s.repo.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// A failed reload is retried after the TTL, not on every call.
	if s.generation == generation {
		s.loadedAt = s.now()
	}

	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load feature flags, serving previous values")
		return s.snapshot
	}

	snapshot := make(map[string]*Flag, len(flags))
	for _, f := range flags {
		snapshot[f.Key] = f
	}
	s.snapshot = snapshot
	return snapshot
}

func (s *Service) fresh() bool {
	return !s.loadedAt.IsZero() && s.now().Sub(s.loadedAt) < s.cacheTTL
}

// IsForceRainSplat returns true if every raindrop should render a splat.
func (s *Service) IsForceRainSplat(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagForceRainSplat)
}

// IsParticlesDisabled returns true if particle layers should be dropped.
func (s *Service) IsParticlesDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableParticles)
}

// IsCachedOnlyWeather returns true if weather lookups must not reach the provider.
func (s *Service) IsCachedOnlyWeather(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagCachedOnlyWeather)
}
