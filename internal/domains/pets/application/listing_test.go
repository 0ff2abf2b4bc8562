package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
)

func TestListing_FiltersPersistAndDriveRefresh(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	favorite := &domain.Pet{ID: 3, OwnerID: 10, Status: domain.StatusAvailable}
	favorite.SetFavorite(true, time.Now())
	catalog := seededCatalog(t, favorite)
	directory := newFakeDirectory(
		&domain.Pet{ID: 1, OwnerID: 10, Status: domain.StatusAvailable, AgeBand: "puppy"},
		&domain.Pet{ID: 2, OwnerID: 11, Status: domain.StatusAdopted},
		&domain.Pet{ID: 3, OwnerID: 10, Status: domain.StatusAvailable, AgeBand: "adult"},
	)
	listing := NewListing(catalog, directory, store)

	sel, err := listing.Filter(ctx, "home")
	require.NoError(t, err)
	require.Equal(t, DefaultFilter(), sel)

	pets, err := listing.Refresh(ctx, "home")
	require.NoError(t, err)
	require.Len(t, pets, 2)
	require.Equal(t, int64(3), pets[0].ID, "favorites first")
	require.True(t, pets[0].Favorite, "merge keeps local favorite")

	require.NoError(t, listing.SaveFilter(ctx, "home", FilterSelection{
		Statuses: []domain.Status{domain.StatusAvailable},
		AgeBand:  "puppy",
	}))
	pets, err = listing.Refresh(ctx, "home")
	require.NoError(t, err)
	require.Len(t, pets, 1)
	require.Equal(t, int64(1), pets[0].ID)

	other, err := listing.Filter(ctx, "mine")
	require.NoError(t, err)
	require.Equal(t, DefaultFilter(), other)
}

func TestListing_RejectsUnknownStatus(t *testing.T) {
	listing := NewListing(seededCatalog(t), newFakeDirectory(), devicestore.NewMemoryStore())
	err := listing.SaveFilter(context.Background(), "home", FilterSelection{Statuses: []domain.Status{9}})
	require.ErrorIs(t, err, ErrInvalidInput)
}
