package ports

import (
	"context"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
)

// SaveRequest creates a term, or updates the existing one when Update is set.
type SaveRequest struct {
	Key          domain.Key
	Update       bool
	Signature    string
	Observations string
}

// Gateway is the remote term API. Fetch returns a remoteerr NotFound error when
// no term exists for the key.
type Gateway interface {
	Save(ctx context.Context, req SaveRequest) (*domain.Term, error)
	Fetch(ctx context.Context, key domain.Key) (*domain.Term, error)
	SendEmail(ctx context.Context, kind domain.Kind, termID int64) (domain.Delivery, error)
}

// Profiles resolves the live personal data of a user.
type Profiles interface {
	Profile(ctx context.Context, userID int64) (domain.Party, error)
}

// PetOwners resolves the donor of a pet for adoption terms.
type PetOwners interface {
	OwnerOf(ctx context.Context, petID int64) (int64, error)
}

// SentCache is the device-local set of pets whose adoption term the user emailed.
type SentCache interface {
	MarkEmailed(ctx context.Context, userID, petID int64) error
	Emailed(ctx context.Context, userID int64) ([]int64, error)
	Has(ctx context.Context, userID, petID int64) (bool, error)
}

// SponsorGate is the interstitial presented after an emailed term.
type SponsorGate interface {
	Present(ctx context.Context)
}
