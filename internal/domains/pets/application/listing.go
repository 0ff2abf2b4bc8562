package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
)

// FilterSelection is the saved filter of one listing screen.
type FilterSelection struct {
	Statuses      []domain.Status `json:"statuses,omitempty"`
	OwnerID       int64           `json:"ownerId,omitempty"`
	BreedID       int64           `json:"breedId,omitempty"`
	AgeBand       string          `json:"ageBand,omitempty"`
	OnlyFavorites bool            `json:"onlyFavorites,omitempty"`
}

// DefaultFilter shows pets open for adoption.
func DefaultFilter() FilterSelection {
	return FilterSelection{Statuses: []domain.Status{domain.StatusAvailable}}
}

// Validate rejects unknown statuses.
func (f FilterSelection) Validate() error {
	for _, s := range f.Statuses {
		if !s.Known() {
			return fmt.Errorf("%w: %w: %d", ErrInvalidInput, domain.ErrInvalidStatus, int(s))
		}
	}
	return nil
}

// Match reports whether pet passes the client-side part of the filter.
func (f FilterSelection) Match(pet *domain.Pet) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if pet.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.OwnerID != 0 && pet.OwnerID != f.OwnerID {
		return false
	}
	if f.BreedID != 0 && pet.BreedID != f.BreedID {
		return false
	}
	if f.AgeBand != "" && pet.AgeBand != f.AgeBand {
		return false
	}
	if f.OnlyFavorites && !pet.Favorite {
		return false
	}
	return true
}

// Listing serves listing screens: saved filters, fetch, merge into the local
// catalog and favorites-first ordering.
type Listing struct {
	catalog   ports.Catalog
	directory ports.Directory
	store     devicestore.Store
}

// NewListing wires a Listing.
func NewListing(catalog ports.Catalog, directory ports.Directory, store devicestore.Store) *Listing {
	return &Listing{catalog: catalog, directory: directory, store: store}
}

// Filter returns the saved selection of screen, or DefaultFilter.
func (l *Listing) Filter(ctx context.Context, screen string) (FilterSelection, error) {
	sel, ok, err := devicestore.GetJSON[FilterSelection](ctx, l.store, devicestore.FiltersKey(screen))
	if err != nil {
		return FilterSelection{}, err
	}
	if !ok {
		return DefaultFilter(), nil
	}
	return sel, nil
}

// SaveFilter persists the selection of screen.
func (l *Listing) SaveFilter(ctx context.Context, screen string, sel FilterSelection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	return devicestore.SetJSON(ctx, l.store, devicestore.FiltersKey(screen), sel)
}

// Refresh fetches the pets matching the saved filter of screen, merges them
// into the catalog and returns them in listing order.
func (l *Listing) Refresh(ctx context.Context, screen string) ([]*domain.Pet, error) {
	sel, err := l.Filter(ctx, screen)
	if err != nil {
		return nil, err
	}
	fetched, err := l.directory.ListPets(ctx, ports.PetQuery{Statuses: sel.Statuses, OwnerID: sel.OwnerID})
	if err != nil {
		return nil, err
	}
	if err := l.catalog.Merge(ctx, fetched); err != nil {
		return nil, err
	}
	out := make([]*domain.Pet, 0, len(fetched))
	for _, p := range fetched {
		local, err := l.catalog.Get(ctx, p.ID)
		if errors.Is(err, ports.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if sel.Match(local) {
			out = append(out, local)
		}
	}
	SortListing(out)
	return out, nil
}
