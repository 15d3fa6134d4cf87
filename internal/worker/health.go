package worker

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/api/middleware"
	"github.com/vibeweather/vibeweather/internal/api/models"
	"github.com/vibeweather/vibeweather/internal/api/response"
)

// maxJobBodyBytes caps push-triggered job payloads.
const maxJobBodyBytes = 64 << 10

// HTTPConfig holds dependencies for the worker's HTTP surface.
type HTTPConfig struct {
	Version    string
	WarmJob    *WarmJob
	Dispatcher *Dispatcher
	Logger     zerolog.Logger
}

// NewHTTPHandler returns the worker's health and job-trigger routes.
//
//	GET  /health              liveness plus warm job metrics
//	POST /v1/jobs/warm-cache  runs a job message synchronously (push trigger)
func NewHTTPHandler(cfg HTTPConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		details := map[string]interface{}{"version": cfg.Version}
		if cfg.WarmJob != nil {
			details["warm"] = cfg.WarmJob.MetricsSnapshot()
		}
		response.JSON(w, r, http.StatusOK, models.Health{
			Status:  models.HealthStatusOK,
			Time:    models.Timestamp(time.Now()),
			Details: details,
		})
	})

	r.With(middleware.RequireJSON, middleware.LimitBody(maxJobBodyBytes)).Post("/v1/jobs/warm-cache", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			if middleware.IsBodyTooLarge(err) {
				response.Error(w, r, models.NewPayloadTooLarge(middleware.GetRequestID(r.Context()), maxJobBodyBytes))
				return
			}
			response.BadRequest(w, r, "could not read request body", nil)
			return
		}
		if len(body) == 0 {
			body = []byte(`{"job_type":"` + JobTypeWarmCache + `"}`)
		}

		err = cfg.Dispatcher.Handle(r.Context(), body)
		switch {
		case errors.Is(err, ErrUnknownJobType):
			response.BadRequest(w, r, "validation error", []models.FieldError{
				{Field: "job_type", Message: err.Error(), Code: "INVALID"},
			})
		case errors.Is(err, ErrInvalidMessage):
			response.BadRequest(w, r, err.Error(), nil)
		case err != nil:
			response.Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), err.Error()))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	return r
}
