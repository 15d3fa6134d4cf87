// Package handler provides HTTP handlers for the vibeweather API.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vibeweather/vibeweather/internal/api/models"
	"github.com/vibeweather/vibeweather/internal/api/response"
	"github.com/vibeweather/vibeweather/internal/featureflags"
	"github.com/vibeweather/vibeweather/internal/provider/resilience"
	"github.com/vibeweather/vibeweather/internal/weather"
)

// Pinger checks a backing store. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies inspected by the ops endpoints. All are optional.
type OpsConfig struct {
	Version   string
	BuildTime string

	Registry *resilience.Registry
	Weather  *weather.Service
	Sessions interface{ Count() int }
	Flags    *featureflags.Service
	Database Pinger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.cfg.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.cfg.Database.Ping(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Version:    h.cfg.Version,
		Subsystems: h.subsystems(r.Context()),
		Providers:  h.providers(),
	}
	if h.cfg.Weather != nil {
		stats := h.cfg.Weather.CacheStats()
		status.Cache = &models.CacheStatus{
			Provider:     stats.Provider,
			Entries:      stats.Entries,
			FreshEntries: stats.FreshEntries,
			SharedStore:  stats.SharedStore,
		}
	}
	if h.cfg.Sessions != nil {
		status.Sessions = &models.SessionStats{Live: h.cfg.Sessions.Count()}
	}

	// Any failing component degrades the service; cached lookups keep working.
	for _, s := range status.Subsystems {
		status.Status = status.Status.Combine(s.Status)
	}
	for _, p := range status.Providers {
		status.Status = status.Status.Combine(p.Status)
	}

	if h.cfg.Flags != nil {
		for _, key := range featureflags.Keys() {
			if h.cfg.Flags.IsEnabled(r.Context(), key) {
				status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, key)
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems(ctx context.Context) []models.SubsystemStatus {
	var out []models.SubsystemStatus

	if h.cfg.Database != nil {
		s := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := h.cfg.Database.Ping(pingCtx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		cancel()
		out = append(out, s)
	}

	if h.cfg.Weather != nil {
		stats := h.cfg.Weather.CacheStats()
		detail := formatCacheDetail(stats)
		out = append(out, models.SubsystemStatus{
			Name:   "weather-cache",
			Status: models.HealthStatusOK,
			Detail: &detail,
		})
	}

	if h.cfg.Sessions != nil {
		detail := formatCount(h.cfg.Sessions.Count(), "live session", "live sessions")
		out = append(out, models.SubsystemStatus{
			Name:   "sessions",
			Status: models.HealthStatusOK,
			Detail: &detail,
		})
	}

	return out
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	all := h.cfg.Registry.All()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, p := range all {
		ps := models.ProviderStatus{
			Provider: p.Name,
			Status:   healthStatus(p.Level()),
		}
		if p.LastSuccessAt != nil {
			ts := models.Timestamp(*p.LastSuccessAt)
			ps.LastSuccessAt = &ts
		}
		if p.LastFailureAt != nil {
			ts := models.Timestamp(*p.LastFailureAt)
			ps.LastFailureAt = &ts
		}
		if p.LastError != "" {
			msg := p.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

func healthStatus(level resilience.Level) models.HealthStatus {
	switch level {
	case resilience.LevelDown:
		return models.HealthStatusFail
	case resilience.LevelDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func formatCacheDetail(stats weather.CacheStats) string {
	return fmt.Sprintf("%d entries (%d fresh) for %s", stats.Entries, stats.FreshEntries, stats.Provider)
}

func formatCount(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
