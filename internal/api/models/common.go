// Package models provides request and response models for the vibeweather API.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// HealthStatus represents the health status of a service or component.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Combine folds a component status into an overall one. A component that is
// not OK degrades the whole; the overall status never drops to FAIL on its own.
func (s HealthStatus) Combine(component HealthStatus) HealthStatus {
	if s == HealthStatusOK && component != HealthStatusOK {
		return HealthStatusDegraded
	}
	return s
}

// Timestamp is a time.Time serialised as RFC3339 in UTC.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339))
}

// UnmarshalJSON implements json.Unmarshaler. Fractional seconds are accepted.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
