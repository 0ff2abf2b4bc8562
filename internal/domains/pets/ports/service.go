package ports

import (
	"context"

	pettypes "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application/types"
)

// AdoptionService defines the adoption use cases exposed to the UI shell (inbound/driving port).
type AdoptionService interface {
	RequestAdopt(ctx context.Context, petID, userID int64) (pettypes.AdoptResult, error)
	ConfirmReadoption(ctx context.Context, petID, userID int64) (pettypes.AdoptResult, error)
	CompleteAdoption(ctx context.Context, petID, adopterID int64, handoff func(context.Context) error) (pettypes.Completion, error)
}

// FavoriteService defines the favorite use cases exposed to the UI shell.
type FavoriteService interface {
	Toggle(ctx context.Context, petID int64) error
	Sync(ctx context.Context, petIDs []int64) error
}
