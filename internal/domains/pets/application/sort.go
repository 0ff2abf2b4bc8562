package application

import (
	"sort"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
)

// SortListing orders pets for listing views: favorites first, most recently
// favorited first among them, then by ascending id.
func SortListing(pets []*domain.Pet) {
	sort.SliceStable(pets, func(i, j int) bool {
		a, b := pets[i], pets[j]
		if a.Favorite != b.Favorite {
			return a.Favorite
		}
		if a.Favorite && !a.FavoritedAt.Equal(b.FavoritedAt) {
			return a.FavoritedAt.After(b.FavoritedAt)
		}
		return a.ID < b.ID
	})
}
