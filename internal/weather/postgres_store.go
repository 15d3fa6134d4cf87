package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of Store.
//
// Expected table:
//
//	CREATE TABLE weather_observations (
//		city_key    TEXT PRIMARY KEY,
//		observation JSONB NOT NULL,
//		fetched_at  TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL observation store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Load returns the stored observation for key.
func (s *PostgresStore) Load(ctx context.Context, key string) (*Observation, time.Time, error) {
	query := `
		SELECT observation, fetched_at
		FROM weather_observations
		WHERE city_key = $1
	`

	var (
		obsBytes  []byte
		fetchedAt time.Time
	)
	if err := s.pool.QueryRow(ctx, query, key).Scan(&obsBytes, &fetchedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, ErrNotStored
		}
		return nil, time.Time{}, fmt.Errorf("loading observation %s: %w", key, err)
	}

	var obs Observation
	if err := json.Unmarshal(obsBytes, &obs); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding observation %s: %w", key, err)
	}
	return &obs, fetchedAt, nil
}

// Save upserts the observation for key. An older fetch never overwrites a newer one.
func (s *PostgresStore) Save(ctx context.Context, key string, obs *Observation, fetchedAt time.Time) error {
	obsBytes, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("encoding observation %s: %w", key, err)
	}

	query := `
		INSERT INTO weather_observations (city_key, observation, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (city_key) DO UPDATE SET
			observation = EXCLUDED.observation,
			fetched_at = EXCLUDED.fetched_at
		WHERE weather_observations.fetched_at <= EXCLUDED.fetched_at
	`
	if _, err := s.pool.Exec(ctx, query, key, obsBytes, fetchedAt); err != nil {
		return fmt.Errorf("saving observation %s: %w", key, err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
