package ports

import (
	"context"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
)

// PetQuery filters a remote pet listing. Zero values mean "any".
type PetQuery struct {
	Statuses []domain.Status
	OwnerID  int64
}

// Directory is the backend's view of pets.
type Directory interface {
	GetPet(ctx context.Context, id int64) (*domain.Pet, error)
	ListPets(ctx context.Context, query PetQuery) ([]*domain.Pet, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error
}

// Favorites manages the server-side favorite relation.
type Favorites interface {
	IsFavorite(ctx context.Context, userID, petID int64) (bool, error)
	AddFavorite(ctx context.Context, userID, petID int64) error
	RemoveFavorite(ctx context.Context, userID, petID int64) error
}

// AssociationRequest asks the backend to add a pet to the user's "my pets".
type AssociationRequest struct {
	PetID  int64
	UserID int64
	// Force bypasses the release-history check after the user confirmed a re-adoption.
	Force          bool
	IdempotencyKey string
}

// Adoptions creates my-pets associations.
type Adoptions interface {
	CreateAssociation(ctx context.Context, req AssociationRequest) (*domain.Association, error)
}

// ReferenceData resolves breed, status, age band and disease names.
type ReferenceData interface {
	Lookup(ctx context.Context, kind domain.ReferenceKind, id int64) (*domain.ReferenceItem, error)
}

// Viewer identifies the signed-in user on the device.
type Viewer interface {
	CurrentUserID(ctx context.Context) (int64, error)
}

// SponsorGate is the interstitial presented after specific transitions.
type SponsorGate interface {
	Present(ctx context.Context)
}

// TermGate confirms that the adoption term between a pet's donor and an
// adopter was emailed to both parties.
type TermGate interface {
	AdoptionTermEmailed(ctx context.Context, petID, adopterID int64) (bool, error)
}
