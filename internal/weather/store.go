package weather

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotStored is returned by a Store that holds no entry for a key.
var ErrNotStored = errors.New("observation not stored")

// Store is a second-level observation cache shared between processes.
// The worker warms it and API instances read through it on local misses.
type Store interface {
	Load(ctx context.Context, key string) (*Observation, time.Time, error)
	Save(ctx context.Context, key string, obs *Observation, fetchedAt time.Time) error
}

// InMemoryStore is a process-local Store.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]storedObservation
}

type storedObservation struct {
	observation *Observation
	fetchedAt   time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]storedObservation)}
}

// Load returns the stored observation and when it was fetched.
func (s *InMemoryStore) Load(_ context.Context, key string) (*Observation, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, ErrNotStored
	}
	return e.observation, e.fetchedAt, nil
}

// Save stores obs for key unless the stored entry was fetched later.
func (s *InMemoryStore) Save(_ context.Context, key string, obs *Observation, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.fetchedAt.After(fetchedAt) {
		return nil
	}
	s.entries[key] = storedObservation{observation: obs, fetchedAt: fetchedAt}
	return nil
}

var _ Store = (*InMemoryStore)(nil)
