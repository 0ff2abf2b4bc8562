package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
)

type petRecord struct {
	ID        int64          `gorm:"primaryKey;column:id"`
	OwnerID   int64          `gorm:"column:owner_id;index"`
	Name      string         `gorm:"column:name"`
	BreedID   int64          `gorm:"column:breed_id"`
	Breed     string         `gorm:"column:breed"`
	AgeBand   string         `gorm:"column:age_band"`
	PhotoURL  string         `gorm:"column:photo_url"`
	Diseases  pq.StringArray `gorm:"column:diseases;type:text[]"`
	Status    int            `gorm:"column:status;index"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (petRecord) TableName() string { return "pets" }

func newPetRecord(p contract.Pet) petRecord {
	return petRecord{
		ID:       p.ID,
		OwnerID:  p.OwnerID,
		Name:     p.Name,
		BreedID:  p.BreedID,
		Breed:    p.Breed,
		AgeBand:  p.AgeBand,
		PhotoURL: p.PhotoURL,
		Diseases: pq.StringArray(append([]string(nil), p.Diseases...)),
		Status:   p.Status,
	}
}

func (r petRecord) toContract() contract.Pet {
	pet := contract.Pet{
		ID:       r.ID,
		OwnerID:  r.OwnerID,
		Name:     r.Name,
		BreedID:  r.BreedID,
		Breed:    r.Breed,
		AgeBand:  r.AgeBand,
		PhotoURL: r.PhotoURL,
		Status:   r.Status,
	}
	if len(r.Diseases) > 0 {
		pet.Diseases = append([]string(nil), r.Diseases...)
	}
	return pet
}

type referenceRecord struct {
	Kind string `gorm:"primaryKey;column:kind;size:64"`
	ID   int64  `gorm:"primaryKey;column:id;autoIncrement:false"`
	Name string `gorm:"column:name"`
}

func (referenceRecord) TableName() string { return "reference_items" }

type favoriteRecord struct {
	UserID    int64     `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	PetID     int64     `gorm:"primaryKey;column:pet_id;autoIncrement:false"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (favoriteRecord) TableName() string { return "favorites" }

type profileRecord struct {
	UserID    int64     `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	Name      string    `gorm:"column:name"`
	Email     string    `gorm:"column:email"`
	Phone     string    `gorm:"column:phone"`
	City      string    `gorm:"column:city"`
	State     string    `gorm:"column:state;size:2"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (profileRecord) TableName() string { return "profiles" }

func (r profileRecord) toContract() contract.Profile {
	return contract.Profile{UserID: r.UserID, Name: r.Name, Email: r.Email, Phone: r.Phone, City: r.City, State: r.State}
}

type tokenRecord struct {
	Token     string    `gorm:"primaryKey;column:token;size:512"`
	UserID    int64     `gorm:"column:user_id;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (tokenRecord) TableName() string { return "access_tokens" }

// termRecord keeps the party snapshots as JSON. The key columns carry zero for
// ids that do not apply to the kind so the unique index covers both kinds.
type termRecord struct {
	ID           int64           `gorm:"primaryKey;column:id"`
	Kind         string          `gorm:"column:kind;size:16;uniqueIndex:idx_terms_key,priority:1"`
	PetID        int64           `gorm:"column:pet_id;uniqueIndex:idx_terms_key,priority:2"`
	AdopterID    int64           `gorm:"column:adopter_id;uniqueIndex:idx_terms_key,priority:3"`
	DonorID      int64           `gorm:"column:donor_id;uniqueIndex:idx_terms_key,priority:4"`
	Donor        contract.Party  `gorm:"column:donor;type:text;serializer:json"`
	Adopter      *contract.Party `gorm:"column:adopter;type:text;serializer:json"`
	Signature    string          `gorm:"column:signature"`
	Observations string          `gorm:"column:observations"`
	Hash         string          `gorm:"column:hash;size:64"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	EmailSentAt  *time.Time      `gorm:"column:email_sent_at"`
}

func (termRecord) TableName() string { return "terms" }

func newTermRecord(t contract.Term, donorKey int64) termRecord {
	rec := termRecord{
		ID:           t.ID,
		Kind:         t.Kind,
		PetID:        t.PetID,
		Donor:        t.Donor,
		Signature:    t.Signature,
		Observations: t.Observations,
		Hash:         t.Hash,
		CreatedAt:    t.CreatedAt,
		EmailSentAt:  t.EmailSentAt,
		DonorID:      donorKey,
	}
	if t.Adopter != nil {
		adopter := *t.Adopter
		rec.Adopter = &adopter
		rec.AdopterID = adopter.UserID
	}
	return rec
}

func (r termRecord) toContract() contract.Term {
	return contract.Term{
		ID:           r.ID,
		Kind:         r.Kind,
		PetID:        r.PetID,
		Donor:        r.Donor,
		Adopter:      r.Adopter,
		Signature:    r.Signature,
		Observations: r.Observations,
		Hash:         r.Hash,
		CreatedAt:    r.CreatedAt,
		EmailSentAt:  r.EmailSentAt,
	}
}

// associationRecord allows any number of released rows but one active row per
// (pet, user).
type associationRecord struct {
	ID         int64      `gorm:"primaryKey;column:id"`
	PetID      int64      `gorm:"column:pet_id;index:idx_associations_pair;uniqueIndex:idx_associations_active,where:released_at IS NULL"`
	UserID     int64      `gorm:"column:user_id;index:idx_associations_pair;uniqueIndex:idx_associations_active,where:released_at IS NULL"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ReleasedAt *time.Time `gorm:"column:released_at"`
}

func (associationRecord) TableName() string { return "associations" }

func (r associationRecord) toContract() contract.Association {
	return contract.Association{ID: r.ID, PetID: r.PetID, UserID: r.UserID, CreatedAt: r.CreatedAt, ReleasedAt: r.ReleasedAt}
}

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	Status      int       `gorm:"column:status"`
	Body        []byte    `gorm:"column:body"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (idempotencyRecord) TableName() string { return "idempotency_keys" }
