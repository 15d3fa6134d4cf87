package weather

import (
	"errors"
	"strings"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrCityNotFound        = errors.New("city not found")
	ErrInvalidCity         = errors.New("invalid city name")
)

// Observation represents the current conditions for a city as reported by a provider.
// Observations are immutable once received.
type Observation struct {
	// Location
	Name string
	Lat  float64
	Lon  float64

	// Condition keyword as reported by the provider, lower-cased (e.g. "rain", "haze").
	Keyword string

	// Category is the coarse classification derived from Keyword.
	Category Category

	// Description is free text and may be empty.
	Description string

	// Temperature in Celsius
	Temperature float64
	FeelsLike   float64

	// Humidity percentage (0-100)
	Humidity float64

	// WindSpeed in m/s
	WindSpeed float64

	Sunrise time.Time
	Sunset  time.Time

	// Timestamps
	ObservedAt time.Time
	FetchedAt  time.Time
}

// Category is the coarse weather classification.
type Category string

const (
	CategoryClear        Category = "clear"
	CategoryRain         Category = "rain"
	CategorySnow         Category = "snow"
	CategoryClouds       Category = "clouds"
	CategoryThunderstorm Category = "thunderstorm"
	CategoryMist         Category = "mist"
	CategoryFog          Category = "fog"
	CategoryOther        Category = "other"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryClear,
		CategoryRain,
		CategorySnow,
		CategoryClouds,
		CategoryThunderstorm,
		CategoryMist,
		CategoryFog,
		CategoryOther,
	}
}

// ParseCategory maps a provider keyword to a Category. Matching is case-insensitive;
// anything unrecognized (drizzle, haze, dust, ...) is CategoryOther.
func ParseCategory(keyword string) Category {
	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case "clear":
		return CategoryClear
	case "rain":
		return CategoryRain
	case "snow":
		return CategorySnow
	case "clouds":
		return CategoryClouds
	case "thunderstorm":
		return CategoryThunderstorm
	case "mist":
		return CategoryMist
	case "fog":
		return CategoryFog
	default:
		return CategoryOther
	}
}

// IsFoggy reports whether the category is mist or fog.
func (c Category) IsFoggy() bool {
	return c == CategoryMist || c == CategoryFog
}

// IsDaytime reports whether now falls within [sunrise, sunset).
// Observations without sun times are treated as daytime.
func IsDaytime(obs *Observation, now time.Time) bool {
	if obs == nil || obs.Sunrise.IsZero() || obs.Sunset.IsZero() {
		return true
	}
	return !now.Before(obs.Sunrise) && now.Before(obs.Sunset)
}

// NormalizeCity trims and validates a city name for lookup.
func NormalizeCity(city string) (string, error) {
	city = strings.Join(strings.Fields(city), " ")
	if city == "" {
		return "", ErrInvalidCity
	}
	return city, nil
}
