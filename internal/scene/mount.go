package scene

import (
	"sync"

	"github.com/vibeweather/vibeweather/internal/particles"
	"github.com/vibeweather/vibeweather/internal/theme"
)

// Options configures a mount. Flags are read once when the mount is created.
type Options struct {
	// Generator is the random source for layouts (optional).
	Generator *particles.Generator

	// ForceSplat renders a splat under every raindrop.
	ForceSplat bool

	// DisableParticles drops rain, snow and star layers.
	DisableParticles bool
}

// Mount holds the memoized layouts for one displayed scene.
// Render returns identical particle layouts until Unmount.
type Mount struct {
	opts   Options
	gen    *particles.Generator
	fields *particles.FieldCache

	mu    sync.Mutex
	snow  []particles.Point
	stars []particles.Point
}

// NewMount creates a mount with an empty layout cache.
func NewMount(opts Options) *Mount {
	gen := opts.Generator
	if gen == nil {
		gen = particles.NewGenerator(nil)
	}
	return &Mount{
		opts:   opts,
		gen:    gen,
		fields: particles.NewFieldCache(gen, opts.ForceSplat),
	}
}

// Options returns the options the mount was created with.
func (m *Mount) Options() Options {
	return m.opts
}

// Render composes the layers for effect.
func (m *Mount) Render(effect theme.Effect) Scene {
	s := Scene{Effect: effect}

	switch effect {
	case theme.EffectThunderstorm:
		s.Layers = append(s.Layers,
			Layer{Kind: LayerCloudOverlay},
			Layer{Kind: LayerLightning, Pulse: pulse(lightningPulse)},
		)
		s.Layers = append(s.Layers, m.rainLayers(particles.IntensityHeavy)...)
	case theme.EffectHeavyRain:
		s.Layers = append(s.Layers, m.rainLayers(particles.IntensityHeavy)...)
	case theme.EffectRain:
		s.Layers = append(s.Layers, m.rainLayers(particles.IntensityNormal)...)
	case theme.EffectSnow:
		if !m.opts.DisableParticles {
			s.Layers = append(s.Layers, Layer{Kind: LayerSnow, Points: m.snowPoints()})
		}
	case theme.EffectClouds:
		s.Layers = append(s.Layers, Layer{Kind: LayerClouds, Clouds: cloudShapes()})
	case theme.EffectClearDay:
		s.Layers = append(s.Layers, Layer{Kind: LayerSun, Pulse: pulse(sunPulse)})
	case theme.EffectClearNight:
		s.Layers = append(s.Layers, Layer{Kind: LayerMoon, Pulse: pulse(moonPulse)})
		if !m.opts.DisableParticles {
			s.Layers = append(s.Layers, Layer{Kind: LayerStars, Points: m.starPoints()})
		}
	}

	return s
}

// Unmount releases the memoized layouts. A later Render regenerates them.
func (m *Mount) Unmount() {
	m.fields.Invalidate()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snow = nil
	m.stars = nil
}

// rainLayers returns the front and back rows for an intensity.
func (m *Mount) rainLayers(intensity particles.Intensity) []Layer {
	if m.opts.DisableParticles {
		return nil
	}
	return []Layer{
		{
			Kind:      LayerRain,
			Row:       particles.RowFront,
			Intensity: intensity,
			Drops:     m.fields.Field(particles.RowFront, intensity),
		},
		{
			Kind:      LayerRain,
			Row:       particles.RowBack,
			Intensity: intensity,
			Drops:     m.fields.Field(particles.RowBack, intensity),
		},
	}
}

func (m *Mount) snowPoints() []particles.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snow == nil {
		m.snow = m.gen.Scatter(SnowflakeCount, 3, 5, 2)
	}
	return m.snow
}

func (m *Mount) starPoints() []particles.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stars == nil {
		m.stars = m.gen.Scatter(StarCount, 2, 4, 2)
	}
	return m.stars
}

func pulse(p Pulse) *Pulse {
	return &p
}
