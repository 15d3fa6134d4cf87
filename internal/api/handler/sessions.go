package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vibeweather/vibeweather/internal/api/models"
	"github.com/vibeweather/vibeweather/internal/api/response"
	"github.com/vibeweather/vibeweather/internal/session"
	"github.com/vibeweather/vibeweather/internal/weather"
)

// SessionHandler handles widget session endpoints.
type SessionHandler struct {
	manager *session.Manager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// CreateSession handles POST /v1/sessions - start a session and run its first search.
// A failed first search still creates the session; the view reports the error.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var input models.SessionCreateRequest
	if !response.DecodeJSON(w, r, &input, true) {
		return
	}

	view, err := h.manager.Create(r.Context(), input.City)
	if err != nil && !errors.Is(err, session.ErrLookupFailed) {
		response.InternalError(w, r, "failed to create session")
		return
	}

	response.Created(w, r, "/v1/sessions/"+view.ID, toSession(view))
}

// GetSession handles GET /v1/sessions/{sessionId}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	view, err := h.manager.Get(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toSession(view))
}

// Search handles POST /v1/sessions/{sessionId}/search.
// Lookup failures answer 200 with the view in the ERROR state.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var input models.SessionSearchRequest
	if !response.DecodeJSON(w, r, &input, false) {
		return
	}

	view, err := h.manager.Search(r.Context(), sessionID, input.City)
	if err != nil && !errors.Is(err, session.ErrLookupFailed) {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toSession(view))
}

// DeleteSession handles DELETE /v1/sessions/{sessionId} - unmount and forget a session.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	if err := h.manager.Delete(r.Context(), sessionID); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.NoContent(w, r)
}

func (h *SessionHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		response.NotFound(w, r, "session not found")
	case errors.Is(err, weather.ErrInvalidCity):
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "city", Message: "city is required", Code: "REQUIRED"},
		})
	default:
		response.InternalError(w, r, "session operation failed")
	}
}
