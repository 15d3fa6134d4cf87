// Package main mints admin bearer tokens for the vibeweather admin endpoints.
//
//	admintoken -sub ops@vibeweather.app -ttl 30m
//
// The signing key, issuer and audience come from the same ADMIN_JWT_*
// variables the API reads, so a token minted here validates against a
// deployment configured from the same environment.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vibeweather/vibeweather/internal/auth"
)

func main() {
	subject := flag.String("sub", "", "operator identity recorded as updated_by on flag changes")
	ttl := flag.Duration("ttl", 0, "token lifetime (default 1h, max 24h)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := auth.ConfigFromEnv()
	if *ttl > 0 {
		cfg.TTL = *ttl
	}
	if cfg.SigningKey == auth.DevSigningKey {
		log.Warn().Msg("ADMIN_JWT_SIGNING_KEY not set - token only valid against a dev deployment")
	}

	token, expiresAt, err := auth.NewJWTService(cfg).GenerateAdminToken(*subject)
	if err != nil {
		log.Error().Err(err).Msg("failed to mint admin token")
		flag.Usage()
		os.Exit(2)
	}

	log.Info().
		Str("sub", *subject).
		Str("audience", cfg.Audience).
		Str("expires_at", expiresAt.Format(time.RFC3339)).
		Msg("admin token minted")
	fmt.Println(token)
}
