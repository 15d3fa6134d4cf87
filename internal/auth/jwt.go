// Package auth issues and validates admin bearer tokens.
//
// Admin tokens are short-lived HS256 JWTs carrying the admin role. They guard
// the feature flag and ops status endpoints and are minted out of band with
// cmd/admintoken.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AdminTokenExpiry is the default lifetime of admin tokens.
	AdminTokenExpiry = 1 * time.Hour

	// MaxAdminTokenExpiry caps the lifetime a caller may request.
	MaxAdminTokenExpiry = 24 * time.Hour

	// RoleAdmin is the only role accepted by ValidateAdminToken.
	RoleAdmin = "admin"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrNotAdmin       = errors.New("token does not carry the admin role")
	ErrNoSigningKey   = errors.New("no signing key configured")
	ErrMissingSubject = errors.New("admin token needs a subject")
)

// AdminClaims represents the claims in admin tokens.
type AdminClaims struct {
	jwt.RegisteredClaims

	// Role must be RoleAdmin.
	Role string `json:"role"`
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string

	// TTL is the lifetime of minted tokens. Zero uses AdminTokenExpiry;
	// values above MaxAdminTokenExpiry are capped.
	TTL time.Duration

	// Leeway tolerates clock skew between minting and validating hosts.
	Leeway time.Duration

	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// DevSigningKey is used when ADMIN_JWT_SIGNING_KEY is unset. Never deploy it.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// ConfigFromEnv reads ADMIN_JWT_SIGNING_KEY, ADMIN_JWT_ISSUER,
// ADMIN_JWT_AUDIENCE, ADMIN_JWT_TTL and ADMIN_JWT_LEEWAY. A missing signing
// key falls back to DevSigningKey.
func ConfigFromEnv() JWTConfig {
	cfg := JWTConfig{
		SigningKey: os.Getenv("ADMIN_JWT_SIGNING_KEY"),
		Issuer:     os.Getenv("ADMIN_JWT_ISSUER"),
		Audience:   os.Getenv("ADMIN_JWT_AUDIENCE"),
		Leeway:     30 * time.Second,
	}
	if cfg.SigningKey == "" {
		cfg.SigningKey = DevSigningKey
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "https://api.vibeweather.app"
	}
	if cfg.Audience == "" {
		cfg.Audience = "vibeweather-admin"
	}
	if d, err := time.ParseDuration(os.Getenv("ADMIN_JWT_TTL")); err == nil {
		cfg.TTL = d
	}
	if d, err := time.ParseDuration(os.Getenv("ADMIN_JWT_LEEWAY")); err == nil && d >= 0 {
		cfg.Leeway = d
	}
	return cfg
}

// JWTService mints and validates admin tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	leeway     time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	ttl := cfg.TTL
	switch {
	case ttl <= 0:
		ttl = AdminTokenExpiry
	case ttl > MaxAdminTokenExpiry:
		ttl = MaxAdminTokenExpiry
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        ttl,
		leeway:     cfg.Leeway,
		now:        now,
	}
}

// GenerateAdminToken mints an admin token for subject and returns it with its expiry.
func (s *JWTService) GenerateAdminToken(subject string) (string, time.Time, error) {
	if len(s.signingKey) == 0 {
		return "", time.Time{}, ErrNoSigningKey
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}

	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: RoleAdmin,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing admin token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAdminToken validates an admin token and returns its claims.
func (s *JWTService) ValidateAdminToken(tokenString string) (*AdminClaims, error) {
	// An empty key would accept tokens signed with an empty secret.
	if len(s.signingKey) == 0 {
		return nil, ErrNoSigningKey
	}

	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	case claims.Role != RoleAdmin:
		return nil, ErrNotAdmin
	case strings.TrimSpace(claims.Subject) == "":
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}
