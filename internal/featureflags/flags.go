// Package featureflags provides runtime switches for scene rendering and
// weather lookups. Every flag is a boolean with a compiled-in default; stored
// values override the default until they are reset.
package featureflags

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Validation errors.
var (
	ErrUnknownFlag      = errors.New("unknown feature flag")
	ErrInvalidFlagValue = errors.New("invalid feature flag value")
)

// Well-known feature flag keys.
const (
	// FlagForceRainSplat renders a splat mark under every raindrop.
	FlagForceRainSplat = "force_rain_splat"

	// FlagDisableParticles drops rain, snow and star layers from scenes.
	FlagDisableParticles = "disable_particles"

	// FlagCachedOnlyWeather answers weather lookups from cache only.
	FlagCachedOnlyWeather = "cached_only_weather"
)

var defaults = map[string]bool{
	FlagForceRainSplat:    false,
	FlagDisableParticles:  false,
	FlagCachedOnlyWeather: false,
}

// Flag is the current state of one switch.
type Flag struct {
	Key     string `db:"key"`
	Enabled bool   `db:"enabled"`

	// UpdatedAt and UpdatedBy are zero for flags still at their default.
	UpdatedAt time.Time `db:"updated_at"`
	UpdatedBy string    `db:"updated_by"`
}

// Overridden reports whether the flag carries a stored value.
func (f *Flag) Overridden() bool {
	return f != nil && !f.UpdatedAt.IsZero()
}

// Defaults returns the compiled-in value of every known flag.
func Defaults() map[string]bool {
	out := make(map[string]bool, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// Keys returns the well-known flag keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Known reports whether key names a well-known flag.
func Known(key string) bool {
	_, ok := defaults[key]
	return ok
}

// Validate checks that key is well known and value is a JSON boolean, and
// returns the value.
func Validate(key string, value interface{}) (bool, error) {
	if !Known(key) {
		return false, fmt.Errorf("%w: %s", ErrUnknownFlag, key)
	}
	enabled, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidFlagValue, key)
	}
	return enabled, nil
}
