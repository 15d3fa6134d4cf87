// Package theme maps weather conditions to a presentation theme.
package theme

import (
	"strings"

	"github.com/vibeweather/vibeweather/internal/weather"
)

// Effect selects the animated layer drawn behind the weather card.
type Effect string

const (
	EffectNone         Effect = "none"
	EffectRain         Effect = "rain"
	EffectHeavyRain    Effect = "heavy-rain"
	EffectSnow         Effect = "snow"
	EffectClouds       Effect = "clouds"
	EffectClearDay     Effect = "clear-day"
	EffectClearNight   Effect = "clear-night"
	EffectThunderstorm Effect = "thunderstorm"
)

// Effects lists every effect variant.
func Effects() []Effect {
	return []Effect{
		EffectNone,
		EffectRain,
		EffectHeavyRain,
		EffectSnow,
		EffectClouds,
		EffectClearDay,
		EffectClearNight,
		EffectThunderstorm,
	}
}

// IsValid reports whether e is one of the defined effects.
func (e Effect) IsValid() bool {
	for _, v := range Effects() {
		if e == v {
			return true
		}
	}
	return false
}

// HasRain reports whether the effect draws raindrop fields.
func (e Effect) HasRain() bool {
	return e == EffectRain || e == EffectHeavyRain || e == EffectThunderstorm
}

// Icon selects the animation applied to the condition icon.
type Icon string

const (
	IconNone         Icon = "none"
	IconSunSpin      Icon = "sun-spin"
	IconMoonGlow     Icon = "moon-glow"
	IconRainBob      Icon = "rain-bob"
	IconSnowDrift    Icon = "snow-drift"
	IconThunderPulse Icon = "thunder-pulse"
	IconFogFade      Icon = "fog-fade"
	IconCloudDrift   Icon = "cloud-drift"
)

// Icons lists every icon variant.
func Icons() []Icon {
	return []Icon{
		IconNone,
		IconSunSpin,
		IconMoonGlow,
		IconRainBob,
		IconSnowDrift,
		IconThunderPulse,
		IconFogFade,
		IconCloudDrift,
	}
}

// IsValid reports whether i is one of the defined icons.
func (i Icon) IsValid() bool {
	for _, v := range Icons() {
		if i == v {
			return true
		}
	}
	return false
}

// Background is either a named gradient class or an explicit gradient style.
// Exactly one of the two fields is set.
type Background struct {
	Class string
	Style string
}

// IsStyle reports whether the background is an explicit gradient style.
func (b Background) IsStyle() bool {
	return b.Style != ""
}

// IsValid reports whether exactly one of Class and Style is set.
func (b Background) IsValid() bool {
	return (b.Class == "") != (b.Style == "")
}

// Theme is the derived presentation for one observation.
type Theme struct {
	Background Background
	Effect     Effect
	Icon       Icon
}

// Input is the part of an observation the classifier reads.
type Input struct {
	// Category is the provider keyword (e.g. "Rain", "haze"). Matched case-insensitively.
	Category string

	// Description is free text and may be empty.
	Description string
}

// InputFromObservation extracts classifier input from an observation.
func InputFromObservation(obs *weather.Observation) Input {
	if obs == nil {
		return Input{}
	}
	keyword := obs.Keyword
	if keyword == "" {
		keyword = string(obs.Category)
	}
	return Input{
		Category:    keyword,
		Description: obs.Description,
	}
}

// Placeholder is shown before any observation has been retained.
func Placeholder() Theme {
	return Theme{
		Background: Background{Class: "from-primary to-secondary"},
		Effect:     EffectNone,
		Icon:       IconNone,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
