package handler

import (
	"net/http"

	"github.com/vibeweather/vibeweather/internal/api/models"
	"github.com/vibeweather/vibeweather/internal/api/response"
	"github.com/vibeweather/vibeweather/internal/featureflags"
	"github.com/vibeweather/vibeweather/internal/scene"
	"github.com/vibeweather/vibeweather/internal/session"
	"github.com/vibeweather/vibeweather/internal/theme"
	"github.com/vibeweather/vibeweather/internal/weather"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums - get enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		Categories: make([]string, 0, len(weather.Categories())),
		Effects:    make([]string, 0, len(theme.Effects())),
		Icons:      make([]string, 0, len(theme.Icons())),
		States:     make([]string, 0, len(session.States())),
		LayerKinds: make([]string, 0, len(scene.LayerKinds())),
		Flags:      featureflags.Keys(),
	}
	for _, c := range weather.Categories() {
		enums.Categories = append(enums.Categories, string(c))
	}
	for _, e := range theme.Effects() {
		enums.Effects = append(enums.Effects, string(e))
	}
	for _, i := range theme.Icons() {
		enums.Icons = append(enums.Icons, string(i))
	}
	for _, s := range session.States() {
		enums.States = append(enums.States, string(s))
	}
	for _, k := range scene.LayerKinds() {
		enums.LayerKinds = append(enums.LayerKinds, string(k))
	}
	response.JSON(w, r, http.StatusOK, enums)
}
