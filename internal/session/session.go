package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/scene"
	"github.com/vibeweather/vibeweather/internal/theme"
	"github.com/vibeweather/vibeweather/internal/weather"
)

// MountFunc creates a scene mount. It is called whenever the effect changes.
type MountFunc func(ctx context.Context) *scene.Mount

// Config holds the collaborators of a single session.
type Config struct {
	Lookup Lookup
	Mount  MountFunc
	Logger zerolog.Logger

	// Now is the clock used for the day flag (optional).
	Now func() time.Time
}

// Session is one widget instance: a retained observation, its theme and its mounted scene.
// Searches may overlap; each result is applied atomically in the order it resolves.
type Session struct {
	id       string
	lookup   Lookup
	newMount MountFunc
	logger   zerolog.Logger
	now      func() time.Time

	// saveMu serializes snapshot persistence; see Manager.persist.
	saveMu sync.Mutex

	mu        sync.RWMutex
	state     State
	city      string
	lastGood  *weather.Observation
	isDay     bool
	theme     theme.Theme
	mount     *scene.Mount
	errMsg    string
	createdAt time.Time
	updatedAt time.Time
}

// New creates an idle session.
func New(id string, cfg Config) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newMount := cfg.Mount
	if newMount == nil {
		newMount = func(context.Context) *scene.Mount { return scene.NewMount(scene.Options{}) }
	}

	created := now()
	return &Session{
		id:        id,
		lookup:    cfg.Lookup,
		newMount:  newMount,
		logger:    cfg.Logger.With().Str("session_id", id).Logger(),
		now:       now,
		state:     StateIdle,
		theme:     theme.Placeholder(),
		createdAt: created,
		updatedAt: created,
	}
}

// Restore rebuilds a session from a snapshot. The theme is recomputed from the
// retained observation and its frozen day flag, on a fresh mount.
func Restore(ctx context.Context, snap *Snapshot, cfg Config) *Session {
	s := New(snap.ID, cfg)
	s.state = snap.State
	s.city = snap.City
	s.lastGood = snap.LastGood
	s.isDay = snap.IsDay
	s.errMsg = snap.ErrorMessage
	s.createdAt = snap.CreatedAt
	s.updatedAt = snap.UpdatedAt

	// A search in flight when the snapshot was taken will never resolve here.
	if s.state == StateLoading {
		s.state = StateIdle
		if s.lastGood != nil {
			s.state = StateSuccess
		}
	}

	if s.lastGood != nil {
		s.theme = theme.Classify(theme.InputFromObservation(s.lastGood), s.isDay)
		s.mount = s.newMount(ctx)
	}
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Search looks up city and applies the result.
// On failure the session moves to StateError, keeps its last good observation
// and returns ErrLookupFailed together with the resulting view.
func (s *Session) Search(ctx context.Context, city string) (View, error) {
	city, err := weather.NormalizeCity(city)
	if err != nil {
		return s.View(), err
	}

	s.mu.Lock()
	s.state = StateLoading
	s.city = city
	s.updatedAt = s.now()
	s.mu.Unlock()

	obs, err := s.lookup.GetCurrentWeather(ctx, city)
	if err != nil {
		s.fail(city, err)
		return s.View(), fmt.Errorf("%w: %s", ErrLookupFailed, city)
	}

	s.succeed(ctx, obs)
	return s.View(), nil
}

func (s *Session) succeed(ctx context.Context, obs *weather.Observation) {
	isDay := weather.IsDaytime(obs, s.now())
	next := theme.Classify(theme.InputFromObservation(obs), isDay)

	// Mount outside the lock; flag lookups may hit the repository.
	var mount *scene.Mount
	s.mu.RLock()
	remount := s.mount == nil || s.theme.Effect != next.Effect
	s.mu.RUnlock()
	if remount {
		mount = s.newMount(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check: another result may have landed while mounting.
	remounted := false
	if s.mount == nil || s.theme.Effect != next.Effect {
		if mount == nil {
			mount = s.newMount(ctx)
		}
		if s.mount != nil {
			s.mount.Unmount()
		}
		s.mount = mount
		remounted = true
	}

	s.state = StateSuccess
	s.lastGood = obs
	s.isDay = isDay
	s.theme = next
	s.errMsg = ""
	s.updatedAt = s.now()

	s.logger.Debug().
		Str("city", obs.Name).
		Str("effect", string(next.Effect)).
		Bool("is_day", isDay).
		Bool("remounted", remounted).
		Msg("search succeeded")
}

func (s *Session) fail(city string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateError
	s.errMsg = LookupFailedMessage
	s.updatedAt = s.now()

	event := s.logger.Warn()
	if errors.Is(cause, weather.ErrCityNotFound) {
		event = s.logger.Info()
	}
	event.Err(cause).
		Str("city", city).
		Bool("has_last_good", s.lastGood != nil).
		Msg("search failed")
}

// View returns the session as of its latest completed transition.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		ID:           s.id,
		State:        s.state,
		City:         s.city,
		LastGood:     s.lastGood,
		IsDay:        s.isDay,
		Theme:        s.theme,
		Scene:        scene.Scene{Effect: theme.EffectNone},
		ErrorMessage: s.errMsg,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
	if s.mount != nil {
		v.Scene = s.mount.Render(s.theme.Effect)
	}
	return v
}

// Snapshot returns the persistable state of the session.
func (s *Session) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Snapshot{
		ID:           s.id,
		State:        s.state,
		City:         s.city,
		LastGood:     s.lastGood,
		IsDay:        s.isDay,
		ErrorMessage: s.errMsg,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	}
}

// Close unmounts the scene.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mount != nil {
		s.mount.Unmount()
		s.mount = nil
	}
}
