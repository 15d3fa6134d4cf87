// Package scene composes the animated layers drawn for a theme effect.
package scene

import (
	"github.com/vibeweather/vibeweather/internal/particles"
	"github.com/vibeweather/vibeweather/internal/theme"
)

// LayerKind identifies what a layer draws.
type LayerKind string

const (
	LayerCloudOverlay LayerKind = "cloud-overlay"
	LayerLightning    LayerKind = "lightning"
	LayerRain         LayerKind = "rain"
	LayerSnow         LayerKind = "snow"
	LayerClouds       LayerKind = "clouds"
	LayerSun          LayerKind = "sun"
	LayerMoon         LayerKind = "moon"
	LayerStars        LayerKind = "stars"
)

// LayerKinds lists every layer kind.
func LayerKinds() []LayerKind {
	return []LayerKind{
		LayerCloudOverlay, LayerLightning, LayerRain, LayerSnow,
		LayerClouds, LayerSun, LayerMoon, LayerStars,
	}
}

// Pulse is a repeating keyframe animation on a single value (scale or opacity).
type Pulse struct {
	From        float64
	To          float64
	Duration    float64
	RepeatDelay float64
}

// CloudShape is one drifting cloud.
type CloudShape struct {
	Left     float64
	Top      float64
	Width    int
	Height   int
	Drift    float64
	Duration float64
}

// Layer is one drawable element of a scene. Only the fields relevant to Kind are set.
type Layer struct {
	Kind LayerKind

	// Rain layers.
	Row       particles.Row
	Intensity particles.Intensity
	Drops     []particles.Spec

	// Snow and star layers.
	Points []particles.Point

	// Cloud layers.
	Clouds []CloudShape

	// Sun, moon and lightning layers.
	Pulse *Pulse
}

// Scene is the ordered list of layers for an effect, back to front.
type Scene struct {
	Effect theme.Effect
	Layers []Layer
}

// Scene constants.
const (
	SnowflakeCount = 20
	StarCount      = 20
	CloudCount     = 4
)

var (
	lightningPulse = Pulse{From: 0, To: 1, Duration: 0.3, RepeatDelay: 2}
	sunPulse       = Pulse{From: 1, To: 1.1, Duration: 3}
	moonPulse      = Pulse{From: 1, To: 1.05, Duration: 4}
)

// cloudShapes returns the fixed drifting cloud layout.
func cloudShapes() []CloudShape {
	shapes := make([]CloudShape, CloudCount)
	for i := range shapes {
		shapes[i] = CloudShape{
			Left:     float64(i * 25),
			Top:      float64(20 + i*10),
			Width:    180,
			Height:   60,
			Drift:    40,
			Duration: float64(10 + i*2),
		}
	}
	return shapes
}
