package featureflags

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores overrides in the feature_flags table created by
// database.Migrate.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

const (
	selectFlagsQuery = `
		SELECT key, enabled, updated_at, updated_by
		FROM feature_flags`

	upsertFlagQuery = `
		INSERT INTO feature_flags (key, enabled, updated_at, updated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by`
)

// NewPostgresRepository creates a new PostgreSQL feature flags repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get returns the stored value of one flag.
func (r *PostgresRepository) Get(ctx context.Context, key string) (*Flag, error) {
	rows, err := r.pool.Query(ctx, selectFlagsQuery+` WHERE key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("getting flag %s: %w", key, err)
	}

	flag, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Flag])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("getting flag %s: %w", key, err)
	}
	return flag, nil
}

// List returns every stored flag ordered by key.
func (r *PostgresRepository) List(ctx context.Context) ([]*Flag, error) {
	rows, err := r.pool.Query(ctx, selectFlagsQuery+` ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}

	flags, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Flag])
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	return flags, nil
}

// Upsert stores all flags in one transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, flags ...*Flag) error {
	batch := &pgx.Batch{}
	for _, f := range flags {
		batch.Queue(upsertFlagQuery, f.Key, f.Enabled, f.UpdatedAt, f.UpdatedBy)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("saving flags: %w", err)
		}
		return nil
	})
}

// Delete removes a stored flag.
func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting flag %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
