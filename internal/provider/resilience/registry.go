package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// degradedAfterFailures is the failure streak that marks a closed circuit as degraded.
const degradedAfterFailures = 3

// Level summarises a provider's health for the ops endpoints.
type Level int

const (
	LevelUp Level = iota
	LevelDegraded
	LevelDown
)

func (l Level) String() string {
	switch l {
	case LevelUp:
		return "up"
	case LevelDegraded:
		return "degraded"
	case LevelDown:
		return "down"
	default:
		return "unknown"
	}
}

// ProviderHealth is a point-in-time view of one upstream provider.
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	// ConsecutiveFailures counts failed lookups since the last success.
	ConsecutiveFailures int

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Level derives the health level. An open circuit is down; a half-open
// circuit or a run of failures behind a closed one is degraded.
func (h *ProviderHealth) Level() Level {
	switch {
	case h.CircuitState == gobreaker.StateOpen:
		return LevelDown
	case h.CircuitState == gobreaker.StateHalfOpen,
		h.ConsecutiveFailures >= degradedAfterFailures:
		return LevelDegraded
	default:
		return LevelUp
	}
}

// Registry tracks provider clients and the outcome of their last lookups.
type Registry struct {
	mu        sync.RWMutex
	now       func() time.Time
	providers map[string]*providerEntry
}

type providerEntry struct {
	client   *Client
	failures int
	success  *time.Time
	failure  *time.Time
	lastErr  string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		now:       time.Now,
		providers: make(map[string]*providerEntry),
	}
}

// Register adds a provider client. Re-registering a name replaces its client
// and clears recorded outcomes.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &providerEntry{client: client}
}

// RecordSuccess notes a lookup the provider answered. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		at := r.now()
		e.success = &at
		e.failures = 0
	}
}

// RecordFailure notes a lookup the provider failed. Unknown names are ignored.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		at := r.now()
		e.failure = &at
		e.failures++
		if err != nil {
			e.lastErr = err.Error()
		}
	}
}

// Health returns the named provider's health, or nil if it is not registered.
func (r *Registry) Health(name string) *ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.providers[name]; ok {
		return e.snapshot(name)
	}
	return nil
}

// All returns every registered provider's health ordered by name.
func (r *Registry) All() []*ProviderHealth {
	r.mu.RLock()
	out := make([]*ProviderHealth, 0, len(r.providers))
	for name, e := range r.providers {
		out = append(out, e.snapshot(name))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *providerEntry) snapshot(name string) *ProviderHealth {
	h := &ProviderHealth{
		Name:                name,
		ConsecutiveFailures: e.failures,
		LastSuccessAt:       e.success,
		LastFailureAt:       e.failure,
		LastError:           e.lastErr,
	}
	if e.client != nil {
		h.CircuitState = e.client.CircuitBreakerState()
		h.Counts = e.client.CircuitBreakerCounts()
	}
	return h
}
