// Package contract holds the JSON payloads exchanged with the adoption backend.
// Errors travel as RFC 7807 problem documents whose detail carries the
// backend's message.
package contract

import "time"

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderAuthorization  = "Authorization"
	ContentTypeJSON      = "application/json"
	ContentTypeProblem   = "application/problem+json"
)

type Pet struct {
	ID       int64    `json:"id"`
	OwnerID  int64    `json:"ownerId"`
	Name     string   `json:"name"`
	BreedID  int64    `json:"breedId,omitempty"`
	Breed    string   `json:"breed,omitempty"`
	AgeBand  string   `json:"ageBand,omitempty"`
	PhotoURL string   `json:"photoUrl,omitempty"`
	Diseases []string `json:"diseases,omitempty"`
	Status   int      `json:"status"`
}

type StatusUpdate struct {
	Status int `json:"status"`
}

type Reference struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Favorite struct {
	UserID   int64 `json:"userId"`
	PetID    int64 `json:"petId"`
	Favorite bool  `json:"favorite"`
}

type Party struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
}

// Profile is the user's personal data as served by the profile endpoint.
type Profile = Party

type Term struct {
	ID           int64      `json:"id"`
	Kind         string     `json:"kind"`
	PetID        int64      `json:"petId,omitempty"`
	Donor        Party      `json:"donor"`
	Adopter      *Party     `json:"adopter,omitempty"`
	Signature    string     `json:"signature"`
	Observations string     `json:"observations,omitempty"`
	Hash         string     `json:"hash"`
	CreatedAt    time.Time  `json:"createdAt"`
	EmailSentAt  *time.Time `json:"emailSentAt,omitempty"`
}

// SaveAdoptionTerm creates the term of (PetID, AdopterID), or replaces its
// content when Update is set.
type SaveAdoptionTerm struct {
	PetID        int64  `json:"petId"`
	AdopterID    int64  `json:"adopterId"`
	Update       bool   `json:"update"`
	Signature    string `json:"signature"`
	Observations string `json:"observations,omitempty"`
}

type SaveDonationTerm struct {
	DonorID      int64  `json:"donorId"`
	Update       bool   `json:"update"`
	Signature    string `json:"signature"`
	Observations string `json:"observations"`
}

type Recipient struct {
	Role      string `json:"role"`
	Email     string `json:"email"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

type Delivery struct {
	TermID     int64       `json:"termId"`
	Recipients []Recipient `json:"recipients"`
}

type AssociationRequest struct {
	PetID  int64 `json:"petId"`
	UserID int64 `json:"userId"`
	Force  bool  `json:"force,omitempty"`
}

type Association struct {
	ID         int64      `json:"id"`
	PetID      int64      `json:"petId"`
	UserID     int64      `json:"userId"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReleasedAt *time.Time `json:"releasedAt,omitempty"`
}
