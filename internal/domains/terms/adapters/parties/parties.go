// Package parties resolves the people behind a term from the users and pets contexts.
package parties

import (
	"context"

	petdomain "github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	petports "github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/ports"
	userdomain "github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
)

// ProfileSource is the part of the device session the term controller reads.
type ProfileSource interface {
	Profile(ctx context.Context, userID int64) (userdomain.Profile, error)
}

// Profiles adapts the device session to the terms port.
type Profiles struct {
	source ProfileSource
}

func NewProfiles(source ProfileSource) *Profiles {
	return &Profiles{source: source}
}

func (p *Profiles) Profile(ctx context.Context, userID int64) (domain.Party, error) {
	profile, err := p.source.Profile(ctx, userID)
	if err != nil {
		return domain.Party{}, err
	}
	return ToParty(profile), nil
}

// ToParty copies the snapshot fields of a profile.
func ToParty(p userdomain.Profile) domain.Party {
	n := p.Normalize()
	return domain.Party{UserID: n.UserID, Name: n.Name, Email: n.Email, Phone: n.Phone, City: n.City, State: n.State}
}

// Owners resolves pet donors through the local catalog, falling back to the backend.
type Owners struct {
	catalog   petports.Catalog
	directory petports.Directory
}

func NewOwners(catalog petports.Catalog, directory petports.Directory) *Owners {
	return &Owners{catalog: catalog, directory: directory}
}

func (o *Owners) OwnerOf(ctx context.Context, petID int64) (int64, error) {
	if o.catalog != nil {
		if pet, err := o.catalog.Get(ctx, petID); err == nil && pet.OwnerID > 0 {
			return pet.OwnerID, nil
		}
	}
	pet, err := o.directory.GetPet(ctx, petID)
	if err != nil {
		return 0, err
	}
	if o.catalog != nil {
		_ = o.catalog.Merge(ctx, []*petdomain.Pet{pet})
	}
	return pet.OwnerID, nil
}

var (
	_ ports.Profiles  = (*Profiles)(nil)
	_ ports.PetOwners = (*Owners)(nil)
)
