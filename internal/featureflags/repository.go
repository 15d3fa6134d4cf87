package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when no value is stored for a flag.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores flag overrides.
type Repository interface {
	// Get returns the stored value of one flag.
	Get(ctx context.Context, key string) (*Flag, error)

	// List returns every stored flag ordered by key.
	List(ctx context.Context) ([]*Flag, error)

	// Upsert stores all flags or none of them.
	Upsert(ctx context.Context, flags ...*Flag) error

	// Delete removes a stored flag so its default applies again.
	Delete(ctx context.Context, key string) error
}
