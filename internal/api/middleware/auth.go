package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vibeweather/vibeweather/internal/api/models"
	"github.com/vibeweather/vibeweather/internal/auth"
)

const adminRealm = "vibeweather-admin"

// adminSubjectKey is the context key for the authenticated admin subject.
type adminSubjectKey struct{}

// TokenValidator validates admin bearer tokens.
type TokenValidator interface {
	ValidateAdminToken(tokenString string) (*auth.AdminClaims, error)
}

// AdminAuth requires a valid admin bearer token and stores its subject in the
// request context. Failures answer 401 with an RFC 6750 challenge.
func AdminAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, detail := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeUnauthorized(w, r, "invalid_request", detail)
				return
			}

			claims, err := validator.ValidateAdminToken(token)
			if err != nil {
				writeUnauthorized(w, r, "invalid_token", tokenErrorDetail(err))
				return
			}

			ctx := context.WithValue(r.Context(), adminSubjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme is
// matched case-insensitively. On failure the token is empty and detail says why.
func bearerToken(header string) (token, detail string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

func tokenErrorDetail(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "admin token has expired"
	case errors.Is(err, auth.ErrNotAdmin):
		return "admin role required"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid admin token"
	default:
		return "authentication failed"
	}
}

// writeUnauthorized writes the problem directly; the response package imports
// this one.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, code, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+adminRealm+`", error="`+code+`"`)

	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetAdminSubject retrieves the authenticated admin subject from the context.
// Returns an empty string if not authenticated.
func GetAdminSubject(ctx context.Context) string {
	if sub, ok := ctx.Value(adminSubjectKey{}).(string); ok {
		return sub
	}
	return ""
}
