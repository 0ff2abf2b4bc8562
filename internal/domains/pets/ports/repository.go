package ports

import (
	"context"
	"errors"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
)

var ErrNotFound = errors.New("pet not found")

// Catalog is the device-local copy of the pets the user has seen.
type Catalog interface {
	Get(ctx context.Context, id int64) (*domain.Pet, error)
	Put(ctx context.Context, pet *domain.Pet) error
	// Update applies fn to the stored pet atomically and returns the result.
	Update(ctx context.Context, id int64, fn func(*domain.Pet) error) (*domain.Pet, error)
	// Merge upserts fetched pets. Local favorite fields survive the merge; they
	// are reconciled separately against the favorites endpoint.
	Merge(ctx context.Context, pets []*domain.Pet) error
	List(ctx context.Context) ([]*domain.Pet, error)
}
