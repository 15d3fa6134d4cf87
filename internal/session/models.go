// Package session implements the search/display state machine behind a weather widget.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/vibeweather/vibeweather/internal/scene"
	"github.com/vibeweather/vibeweather/internal/theme"
	"github.com/vibeweather/vibeweather/internal/weather"
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("session not found")

	// ErrLookupFailed covers every failed search. The cause is logged, never exposed.
	ErrLookupFailed = errors.New("lookup failed")
)

// LookupFailedMessage is the only error text shown to users.
const LookupFailedMessage = "City not found. Please try again."

// DefaultCity is searched when a session is created without one.
const DefaultCity = "London"

// State is the display state of a session.
type State string

const (
	StateIdle    State = "IDLE"
	StateLoading State = "LOADING"
	StateSuccess State = "SUCCESS"
	StateError   State = "ERROR"
)

// States lists every state.
func States() []State {
	return []State{StateIdle, StateLoading, StateSuccess, StateError}
}

// Lookup fetches the current observation for a city.
type Lookup interface {
	GetCurrentWeather(ctx context.Context, city string) (*weather.Observation, error)
}

// FlagSource answers runtime switches read when a scene is mounted.
type FlagSource interface {
	IsForceRainSplat(ctx context.Context) bool
	IsParticlesDisabled(ctx context.Context) bool
}

// Snapshot is the persisted form of a session.
// The mount is never persisted; a restored session gets a fresh one.
type Snapshot struct {
	ID           string
	State        State
	City         string
	LastGood     *weather.Observation
	IsDay        bool
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// View is a consistent read of a session after its latest completed transition.
type View struct {
	ID    string
	State State

	// City is the most recently searched city, which may differ from LastGood.Name.
	City string

	// LastGood is the last successful observation, kept across failed searches.
	LastGood *weather.Observation

	// IsDay is frozen when LastGood is accepted.
	IsDay bool

	Theme theme.Theme
	Scene scene.Scene

	// ErrorMessage is set only in StateError.
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}
