package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/api/middleware"
	"github.com/vibeweather/vibeweather/internal/api/models"
	"github.com/vibeweather/vibeweather/internal/api/response"
	"github.com/vibeweather/vibeweather/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	defaults := featureflags.Defaults()
	flags := h.service.Flags(r.Context())

	list := models.FeatureFlagList{Items: make([]models.FeatureFlag, 0, len(flags))}
	for _, f := range flags {
		item := models.FeatureFlag{
			Key:        f.Key,
			Value:      f.Enabled,
			Default:    defaults[f.Key],
			Overridden: f.Overridden(),
		}
		if item.Overridden {
			updatedAt := models.Timestamp(f.UpdatedAt)
			item.UpdatedAt = &updatedAt
			if f.UpdatedBy != "" {
				updatedBy := f.UpdatedBy
				item.UpdatedBy = &updatedBy
			}
		}
		list.Items = append(list.Items, item)
	}

	response.JSON(w, r, http.StatusOK, list)
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
// Either every flag in the request is stored or none is.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var input models.FeatureFlagUpdateRequest
	if !response.DecodeJSON(w, r, &input, false) {
		return
	}
	if len(input.Flags) == 0 {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "flags", Message: "at least one flag is required", Code: "REQUIRED"},
		})
		return
	}

	var fieldErrors []models.FieldError
	values := make(map[string]bool, len(input.Flags))
	for _, f := range input.Flags {
		enabled, err := featureflags.Validate(f.Key, f.Value)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   "flags." + f.Key,
				Message: err.Error(),
				Code:    "INVALID",
			})
			continue
		}
		if _, dup := values[f.Key]; dup {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   "flags." + f.Key,
				Message: "flag listed more than once",
				Code:    "INVALID",
			})
			continue
		}
		values[f.Key] = enabled
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	admin := middleware.GetAdminSubject(r.Context())
	if err := h.service.Update(r.Context(), admin, values); err != nil {
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	h.logger.Info().
		Str("admin", admin).
		Interface("flags", values).
		Msg("feature flags updated")

	response.NoContent(w, r)
}

// ResetFeatureFlag handles DELETE /v1/admin/feature-flags/{key} - restore a flag's default.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	err := h.service.Reset(r.Context(), key)
	switch {
	case errors.Is(err, featureflags.ErrUnknownFlag):
		response.NotFound(w, r, "unknown feature flag: "+key)
		return
	case err != nil:
		h.logger.Error().Err(err).Str("flag", key).Msg("failed to reset feature flag")
		response.InternalError(w, r, "failed to reset feature flag")
		return
	}

	h.logger.Info().
		Str("admin", middleware.GetAdminSubject(r.Context())).
		Str("flag", key).
		Msg("feature flag reset to default")

	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - reload flags on next read.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
