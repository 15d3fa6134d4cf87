package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibeweather/vibeweather/internal/weather"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
//
// Expected table:
//
//	CREATE TABLE weather_sessions (
//		id            UUID PRIMARY KEY,
//		state         TEXT NOT NULL,
//		city          TEXT NOT NULL DEFAULT '',
//		observation   JSONB,
//		is_day        BOOLEAN NOT NULL DEFAULT TRUE,
//		error_message TEXT NOT NULL DEFAULT '',
//		created_at    TIMESTAMPTZ NOT NULL,
//		updated_at    TIMESTAMPTZ NOT NULL
//	);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a snapshot by session ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Snapshot, error) {
	query := `
		SELECT id, state, city, observation, is_day, error_message, created_at, updated_at
		FROM weather_sessions
		WHERE id = $1
	`

	var (
		snap     Snapshot
		state    string
		obsBytes []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&snap.ID,
		&state,
		&snap.City,
		&obsBytes,
		&snap.IsDay,
		&snap.ErrorMessage,
		&snap.CreatedAt,
		&snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	snap.State = State(state)

	if len(obsBytes) > 0 {
		var obs weather.Observation
		if err := json.Unmarshal(obsBytes, &obs); err != nil {
			return nil, fmt.Errorf("decoding observation: %w", err)
		}
		snap.LastGood = &obs
	}

	return &snap, nil
}

// Save creates or replaces a snapshot.
func (r *PostgresRepository) Save(ctx context.Context, snap *Snapshot) error {
	var obsBytes []byte
	if snap.LastGood != nil {
		b, err := json.Marshal(snap.LastGood)
		if err != nil {
			return fmt.Errorf("encoding observation: %w", err)
		}
		obsBytes = b
	}

	query := `
		INSERT INTO weather_sessions (id, state, city, observation, is_day, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			city = EXCLUDED.city,
			observation = EXCLUDED.observation,
			is_day = EXCLUDED.is_day,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
		WHERE weather_sessions.updated_at <= EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		snap.ID,
		string(snap.State),
		snap.City,
		obsBytes,
		snap.IsDay,
		snap.ErrorMessage,
		snap.CreatedAt,
		snap.UpdatedAt,
	)
	return err
}

// Delete removes a snapshot.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM weather_sessions WHERE id = $1`, id)
	return err
}
