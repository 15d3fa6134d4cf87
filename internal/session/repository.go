package session

import (
	"context"
	"sync"
)

// Repository defines the interface for session snapshot persistence.
type Repository interface {
	// Get retrieves a snapshot by session ID.
	// Returns ErrSessionNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// Save creates or replaces a snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Delete removes a snapshot. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used when no database is configured and in tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewInMemoryRepository creates a new in-memory session repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		snapshots: make(map[string]*Snapshot),
	}
}

// Get retrieves a snapshot by session ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.snapshots[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	// Return a copy
	cpy := *snap
	return &cpy, nil
}

// Save creates or replaces a snapshot.
func (r *InMemoryRepository) Save(_ context.Context, snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *snap
	r.snapshots[snap.ID] = &cpy
	return nil
}

// Delete removes a snapshot.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.snapshots, id)
	return nil
}
