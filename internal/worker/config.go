// Package worker provides background job processing for vibeweather.
package worker

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// WarmTarget is a city whose observation is kept hot in the weather cache.
type WarmTarget struct {
	// City is the provider query, e.g. "London".
	City string

	// Priority determines warm order (lower = higher priority).
	Priority int
}

// WarmConfig holds configuration for the cache warm job.
type WarmConfig struct {
	// Targets are the cities to warm.
	// If empty, uses DefaultWarmTargets.
	Targets []WarmTarget

	// Concurrency is the number of concurrent provider lookups.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each city lookup.
	// Default: 10 seconds
	Timeout time.Duration

	// Interval is how often the job runs when no Pub/Sub subscription is configured.
	// Default: 10 minutes
	Interval time.Duration
}

// DefaultWarmConfig returns the default warm configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Targets:     DefaultWarmTargets(),
		Concurrency: 3,
		Timeout:     10 * time.Second,
		Interval:    10 * time.Minute,
	}
}

// DefaultWarmTargets returns the cities most widgets open on.
// London is the widget's initial city, so it goes first.
func DefaultWarmTargets() []WarmTarget {
	return []WarmTarget{
		{City: "London", Priority: 1},
		{City: "New York", Priority: 2},
		{City: "Paris", Priority: 2},
		{City: "Tokyo", Priority: 2},
		{City: "Berlin", Priority: 3},
		{City: "Sydney", Priority: 3},
		{City: "Amsterdam", Priority: 3},
		{City: "Toronto", Priority: 3},
	}
}

// TargetsFromList builds targets from a comma-separated city list such as
// the WARM_CITIES environment variable. Order sets priority.
func TargetsFromList(list string) []WarmTarget {
	var targets []WarmTarget
	for _, part := range strings.Split(list, ",") {
		city := strings.TrimSpace(part)
		if city == "" {
			continue
		}
		targets = append(targets, WarmTarget{City: city, Priority: len(targets) + 1})
	}
	return targets
}

// Cities returns the target cities ordered by priority.
func (c WarmConfig) Cities() []string {
	targets := slices.Clone(c.Targets)
	slices.SortStableFunc(targets, func(a, b WarmTarget) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	cities := make([]string, 0, len(targets))
	for _, target := range targets {
		cities = append(cities, target.City)
	}
	return cities
}
