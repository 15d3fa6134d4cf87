package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/particles"
	"github.com/vibeweather/vibeweather/internal/scene"
)

// ManagerConfig holds configuration for the session manager.
type ManagerConfig struct {
	// Lookup performs weather searches (required).
	Lookup Lookup

	// Repository persists snapshots (optional, defaults to in-memory).
	Repository Repository

	// Flags are read each time a scene is mounted (optional).
	Flags FlagSource

	// Generator is the random source for particle layouts (optional).
	Generator *particles.Generator

	Logger zerolog.Logger

	// Now is the clock used for day flags (optional).
	Now func() time.Time

	// IdleTTL is how long a live session may go untouched before EvictIdle
	// unmounts it. Default 30 minutes.
	IdleTTL time.Duration

	// MaxLive caps live sessions; the least recently used one is evicted
	// when a new session would exceed it. Default 10000.
	MaxLive int
}

// Live session defaults.
const (
	DefaultIdleTTL = 30 * time.Minute
	DefaultMaxLive = 10000
)

// liveSession is a mounted session and when it was last used.
type liveSession struct {
	session  *Session
	lastSeen atomic.Int64 // unix nanoseconds
}

func (l *liveSession) touch() {
	l.lastSeen.Store(time.Now().UnixNano())
}

// Manager owns live sessions and persists their snapshots.
type Manager struct {
	lookup Lookup
	repo   Repository
	flags  FlagSource
	gen    *particles.Generator
	logger zerolog.Logger
	now    func() time.Time

	idleTTL time.Duration
	maxLive int

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewManager creates a new session manager.
func NewManager(cfg ManagerConfig) *Manager {
	repo := cfg.Repository
	if repo == nil {
		repo = NewInMemoryRepository()
	}
	gen := cfg.Generator
	if gen == nil {
		gen = particles.NewGenerator(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	maxLive := cfg.MaxLive
	if maxLive <= 0 {
		maxLive = DefaultMaxLive
	}

	return &Manager{
		lookup:   cfg.Lookup,
		repo:     repo,
		flags:    cfg.Flags,
		gen:      gen,
		logger:   cfg.Logger,
		now:      now,
		idleTTL:  idleTTL,
		maxLive:  maxLive,
		sessions: make(map[string]*liveSession),
	}
}

// Create starts a session and searches city, or DefaultCity when city is empty.
// A failed first search still creates the session; the view is in StateError
// and ErrLookupFailed is returned alongside it.
func (m *Manager) Create(ctx context.Context, city string) (View, error) {
	if strings.TrimSpace(city) == "" {
		city = DefaultCity
	}

	s := New(uuid.New().String(), m.sessionConfig())
	m.add(s)

	m.logger.Info().Str("session_id", s.ID()).Msg("session created")

	view, searchErr := s.Search(ctx, city)
	if err := m.persist(ctx, s); err != nil {
		// The caller never learns the ID, so nothing could reach the session again.
		m.evict(s.ID(), s)
		return view, err
	}
	return view, searchErr
}

// Get returns the current view of a session, restoring it from the repository if needed.
func (m *Manager) Get(ctx context.Context, id string) (View, error) {
	s, err := m.session(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// Search runs a search on an existing session.
func (m *Manager) Search(ctx context.Context, id, city string) (View, error) {
	s, err := m.session(ctx, id)
	if err != nil {
		return View{}, err
	}

	view, searchErr := s.Search(ctx, city)
	if searchErr != nil && !errors.Is(searchErr, ErrLookupFailed) {
		// Validation errors leave the session untouched.
		return view, searchErr
	}

	if err := m.persist(ctx, s); err != nil {
		return view, err
	}
	return view, searchErr
}

// Delete unmounts and forgets a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	l, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !live {
		if _, err := m.repo.Get(ctx, id); err != nil {
			return err
		}
	} else {
		l.session.Close()
	}

	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}

	m.logger.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle unmounts live sessions unused since before now minus the idle TTL
// and returns how many were evicted. Their snapshots stay in the repository,
// so a later request restores them on a fresh mount.
func (m *Manager) EvictIdle(now time.Time) int {
	cutoff := now.Add(-m.idleTTL).UnixNano()

	m.mu.Lock()
	var idle []*Session
	for id, l := range m.sessions {
		if l.lastSeen.Load() < cutoff {
			idle = append(idle, l.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		m.logger.Debug().Int("evicted", len(idle)).Int("live", m.Count()).Msg("evicted idle sessions")
	}
	return len(idle)
}

// RunEvictor calls EvictIdle every interval until ctx is cancelled.
func (m *Manager) RunEvictor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.EvictIdle(now)
		}
	}
}

// add registers s as live and returns it, or returns the session already live
// under the same ID. The least recently used session is evicted when the cap is reached.
func (m *Manager) add(s *Session) *Session {
	l := &liveSession{session: s}
	l.touch()

	var victim *Session
	m.mu.Lock()
	if existing, ok := m.sessions[s.ID()]; ok {
		m.mu.Unlock()
		existing.touch()
		return existing.session
	}
	if len(m.sessions) >= m.maxLive {
		var oldestID string
		var oldest int64
		for id, other := range m.sessions {
			if seen := other.lastSeen.Load(); oldestID == "" || seen < oldest {
				oldestID, oldest = id, seen
			}
		}
		victim = m.sessions[oldestID].session
		delete(m.sessions, oldestID)
	}
	m.sessions[s.ID()] = l
	m.mu.Unlock()

	if victim != nil {
		victim.Close()
		m.logger.Debug().Str("session_id", victim.ID()).Msg("evicted least recently used session")
	}
	return s
}

// evict drops s if it is still the live session for id.
func (m *Manager) evict(id string, s *Session) {
	m.mu.Lock()
	if l, ok := m.sessions[id]; ok && l.session == s {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	s.Close()
}

// session returns a live session or restores one from the repository.
func (m *Manager) session(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	l, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		l.touch()
		return l.session, nil
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	snap, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	restored := Restore(ctx, snap, m.sessionConfig())

	if live := m.add(restored); live != restored {
		restored.Close()
		return live, nil
	}

	m.logger.Debug().Str("session_id", id).Msg("session restored from repository")
	return restored, nil
}

// persist saves the session's snapshot. Saves for one session are serialized
// and each snapshot is taken inside the critical section, so the last save
// always carries the latest state.
func (m *Manager) persist(ctx context.Context, s *Session) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := m.repo.Save(ctx, s.Snapshot()); err != nil {
		m.logger.Error().Err(err).Str("session_id", s.ID()).Msg("failed to save session")
		return err
	}
	return nil
}

func (m *Manager) sessionConfig() Config {
	return Config{
		Lookup: m.lookup,
		Mount:  m.mount,
		Logger: m.logger,
		Now:    m.now,
	}
}

// mount reads the flags once and creates a scene mount.
func (m *Manager) mount(ctx context.Context) *scene.Mount {
	opts := scene.Options{Generator: m.gen}
	if m.flags != nil {
		opts.ForceSplat = m.flags.IsForceRainSplat(ctx)
		opts.DisableParticles = m.flags.IsParticlesDisabled(ctx)
	}
	return scene.NewMount(opts)
}
