// Package sandbox is a local implementation of the adoption backend. It serves
// the same REST contract as the marketplace, enforces the server-side
// invariants (one term per key, one active association per pet and user) and
// speaks the informal error messages clients classify.
package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// TermKey identifies a term row. Unused ids are zero.
type TermKey struct {
	Kind      string
	PetID     int64
	AdopterID int64
	DonorID   int64
}

// KeyOf returns the key a term is stored under.
func KeyOf(t contract.Term) TermKey {
	if t.Kind == KindDonation {
		return TermKey{Kind: KindDonation, DonorID: t.Donor.UserID}
	}
	var adopter int64
	if t.Adopter != nil {
		adopter = t.Adopter.UserID
	}
	return TermKey{Kind: KindAdoption, PetID: t.PetID, AdopterID: adopter}
}

const (
	KindAdoption = "adoption"
	KindDonation = "donation"
)

// PetFilter selects pets; zero values match everything.
type PetFilter struct {
	Statuses []int
	OwnerID  int64
}

// IdempotencyRecord is the stored response of a keyed create.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	Status      int
	Body        []byte
	CreatedAt   time.Time
}

// Store persists the sandbox state. CreateTerm and CreateAssociation return
// ErrDuplicate when the uniqueness invariant would be broken; implementations
// must enforce it atomically.
type Store interface {
	Pet(ctx context.Context, id int64) (contract.Pet, error)
	Pets(ctx context.Context, filter PetFilter) ([]contract.Pet, error)
	SavePet(ctx context.Context, pet contract.Pet) error
	SetPetStatus(ctx context.Context, id int64, status int) error

	Reference(ctx context.Context, kind string, id int64) (contract.Reference, error)
	SaveReference(ctx context.Context, ref contract.Reference) error

	Favorite(ctx context.Context, userID, petID int64) (bool, error)
	SetFavorite(ctx context.Context, userID, petID int64, on bool) error

	Profile(ctx context.Context, userID int64) (contract.Profile, error)
	SaveProfile(ctx context.Context, profile contract.Profile) error
	UserForToken(ctx context.Context, token string) (int64, error)
	SaveToken(ctx context.Context, token string, userID int64) error

	CreateTerm(ctx context.Context, term contract.Term) (contract.Term, error)
	ReplaceTerm(ctx context.Context, term contract.Term) (contract.Term, error)
	TermByKey(ctx context.Context, key TermKey) (contract.Term, error)
	TermByID(ctx context.Context, kind string, id int64) (contract.Term, error)
	MarkTermEmailed(ctx context.Context, kind string, id int64, at time.Time) error

	Associations(ctx context.Context, petID, userID int64) ([]contract.Association, error)
	CreateAssociation(ctx context.Context, assoc contract.Association) (contract.Association, error)
	ReleaseAssociation(ctx context.Context, petID, userID int64, at time.Time) error

	Idempotent(ctx context.Context, key string) (*IdempotencyRecord, error)
	// SaveIdempotent stores rec unless the key exists, in which case the stored record is returned.
	SaveIdempotent(ctx context.Context, rec IdempotencyRecord) (*IdempotencyRecord, error)
}
