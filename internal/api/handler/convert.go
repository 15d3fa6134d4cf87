package handler

import (
	"time"

	"github.com/vibeweather/vibeweather/internal/api/models"
	"github.com/vibeweather/vibeweather/internal/scene"
	"github.com/vibeweather/vibeweather/internal/session"
	"github.com/vibeweather/vibeweather/internal/theme"
	"github.com/vibeweather/vibeweather/internal/weather"
)

func toObservation(obs *weather.Observation) *models.Observation {
	if obs == nil {
		return nil
	}
	return &models.Observation{
		City:        obs.Name,
		Lat:         obs.Lat,
		Lon:         obs.Lon,
		Keyword:     obs.Keyword,
		Category:    string(obs.Category),
		Description: obs.Description,
		Temperature: obs.Temperature,
		FeelsLike:   obs.FeelsLike,
		Humidity:    obs.Humidity,
		WindSpeed:   obs.WindSpeed,
		Sunrise:     optionalTimestamp(obs.Sunrise),
		Sunset:      optionalTimestamp(obs.Sunset),
		ObservedAt:  optionalTimestamp(obs.ObservedAt),
	}
}

func optionalTimestamp(t time.Time) *models.Timestamp {
	if t.IsZero() {
		return nil
	}
	ts := models.Timestamp(t)
	return &ts
}

func toTheme(t theme.Theme) models.Theme {
	return models.Theme{
		Background: models.Background{
			Class: t.Background.Class,
			Style: t.Background.Style,
		},
		Effect: string(t.Effect),
		Icon:   string(t.Icon),
	}
}

func toScene(s scene.Scene) models.Scene {
	layers := make([]models.Layer, 0, len(s.Layers))
	for _, l := range s.Layers {
		layer := models.Layer{Kind: string(l.Kind)}

		if len(l.Drops) > 0 {
			layer.Row = string(l.Row)
			layer.Intensity = string(l.Intensity)
			layer.Drops = make([]models.Drop, len(l.Drops))
			for i, d := range l.Drops {
				layer.Drops[i] = models.Drop{
					Edge:     string(d.Edge),
					Offset:   d.Offset,
					Bottom:   d.Bottom,
					Delay:    d.Delay,
					Duration: d.Duration,
					Splat:    d.Splat,
				}
			}
		}

		if len(l.Points) > 0 {
			layer.Particles = make([]models.Particle, len(l.Points))
			for i, p := range l.Points {
				layer.Particles[i] = models.Particle{
					Left:     p.Left,
					Top:      p.Top,
					Delay:    p.Delay,
					Duration: p.Duration,
				}
			}
		}

		if len(l.Clouds) > 0 {
			layer.Clouds = make([]models.Cloud, len(l.Clouds))
			for i, c := range l.Clouds {
				layer.Clouds[i] = models.Cloud{
					Left:     c.Left,
					Top:      c.Top,
					Width:    c.Width,
					Height:   c.Height,
					Drift:    c.Drift,
					Duration: c.Duration,
				}
			}
		}

		if l.Pulse != nil {
			layer.Pulse = &models.Pulse{
				From:        l.Pulse.From,
				To:          l.Pulse.To,
				Duration:    l.Pulse.Duration,
				RepeatDelay: l.Pulse.RepeatDelay,
			}
		}

		layers = append(layers, layer)
	}

	return models.Scene{
		Effect: string(s.Effect),
		Layers: layers,
	}
}

func toSession(v session.View) models.Session {
	return models.Session{
		SessionID: v.ID,
		Status:    string(v.State),
		City:      v.City,
		Weather:   toObservation(v.LastGood),
		IsDay:     v.IsDay,
		Theme:     toTheme(v.Theme),
		Scene:     toScene(v.Scene),
		Error:     v.ErrorMessage,
		CreatedAt: models.Timestamp(v.CreatedAt),
		UpdatedAt: models.Timestamp(v.UpdatedAt),
	}
}
