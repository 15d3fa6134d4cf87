package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeweather/vibeweather/internal/api/middleware"
	"github.com/vibeweather/vibeweather/internal/api/models"
)

func TestContentTypeJSON(t *testing.T) {
	handler := middleware.ContentTypeJSON(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/metadata/enums", http.NoBody))

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"json", http.MethodPost, "application/json", http.StatusOK},
		{"json with charset", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"uppercase json", http.MethodPut, "Application/JSON", http.StatusOK},
		{"structured json suffix", http.MethodPost, "application/merge-patch+json", http.StatusOK},
		{"no content type", http.MethodPost, "", http.StatusOK},
		{"form", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"json lookalike", http.MethodPost, "application/jsonp", http.StatusUnsupportedMediaType},
		{"malformed", http.MethodPatch, "application/json; =", http.StatusUnsupportedMediaType},
		{"get ignores content type", http.MethodGet, "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireJSON(okHandler())

			req := httptest.NewRequest(tt.method, "/v1/sessions", strings.NewReader(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnsupportedMediaType {
				var problem models.Problem
				require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
				assert.Equal(t, models.ProblemTypeMediaType, problem.Type)
				assert.Equal(t, "/v1/sessions", problem.Instance)
			}
		})
	}
}

func TestLimitBody_RejectsDeclaredLength(t *testing.T) {
	called := false
	handler := middleware.LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"city":"Paris"}`)))

	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestLimitBody_FailsOnRead(t *testing.T) {
	var readErr error
	handler := middleware.LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", io.NopCloser(strings.NewReader(`{"city":"Paris"}`)))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Error(t, readErr)
	assert.True(t, middleware.IsBodyTooLarge(readErr))
}

func TestLimitBody_AllowsSmallBodies(t *testing.T) {
	var body []byte
	handler := middleware.LimitBody(64)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"city":"Paris"}`)))

	assert.Equal(t, `{"city":"Paris"}`, string(body))
}
