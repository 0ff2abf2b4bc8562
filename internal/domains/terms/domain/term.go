package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two consent documents.
type Kind string

const (
	// KindAdoption is signed per (pet, adopter) before the parties may talk.
	KindAdoption Kind = "adoption"
	// KindDonation is signed once per donor before they may list pets.
	KindDonation Kind = "donation"
)

var (
	ErrInvalidKey        = errors.New("invalid term key")
	ErrMissingSignature  = errors.New("signature is required")
	ErrMissingMotive     = errors.New("donation motive is required")
	ErrBlocked           = errors.New("term flow is blocked")
	ErrInvalidTransition = errors.New("invalid term transition")
)

// Key identifies the single term allowed per adoption pair or per donor.
type Key struct {
	Kind      Kind
	PetID     int64
	AdopterID int64
	DonorID   int64
}

// AdoptionKey builds the key of the term between petID's donor and adopterID.
func AdoptionKey(petID, adopterID int64) Key {
	return Key{Kind: KindAdoption, PetID: petID, AdopterID: adopterID}
}

// DonationKey builds the key of donorID's donation term.
func DonationKey(donorID int64) Key {
	return Key{Kind: KindDonation, DonorID: donorID}
}

// Validate checks the ids required by the key kind.
func (k Key) Validate() error {
	switch k.Kind {
	case KindAdoption:
		if k.PetID <= 0 || k.AdopterID <= 0 {
			return fmt.Errorf("%w: adoption terms need pet and adopter ids", ErrInvalidKey)
		}
	case KindDonation:
		if k.DonorID <= 0 {
			return fmt.Errorf("%w: donation terms need a donor id", ErrInvalidKey)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidKey, k.Kind)
	}
	return nil
}

func (k Key) String() string {
	if k.Kind == KindDonation {
		return fmt.Sprintf("donation:%d", k.DonorID)
	}
	return fmt.Sprintf("adoption:%d:%d", k.PetID, k.AdopterID)
}

// Party is the personal data of one side, as snapshotted in a term or read
// live from a profile.
type Party struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	City   string `json:"city"`
	State  string `json:"state"`
}

// Normalize trims every field and lowercases the email.
func (p Party) Normalize() Party {
	return Party{
		UserID: p.UserID,
		Name:   strings.TrimSpace(p.Name),
		Email:  strings.ToLower(strings.TrimSpace(p.Email)),
		Phone:  strings.TrimSpace(p.Phone),
		City:   strings.TrimSpace(p.City),
		State:  strings.TrimSpace(p.State),
	}
}

// Diff lists the fields of p that differ from live.
func (p Party) Diff(live Party) []string {
	a, b := p.Normalize(), live.Normalize()
	var fields []string
	if a.Name != b.Name {
		fields = append(fields, "name")
	}
	if a.Email != b.Email {
		fields = append(fields, "email")
	}
	if a.Phone != b.Phone {
		fields = append(fields, "phone")
	}
	if a.City != b.City {
		fields = append(fields, "city")
	}
	if a.State != b.State {
		fields = append(fields, "state")
	}
	return fields
}

// Term is a signed consent record. Adopter is nil for donation terms.
type Term struct {
	ID           int64
	Kind         Kind
	PetID        int64
	Donor        Party
	Adopter      *Party
	Signature    string
	Observations string
	Hash         string
	CreatedAt    time.Time
	EmailSentAt  *time.Time
}

// Key returns the identity of the term.
func (t Term) Key() Key {
	if t.Kind == KindDonation {
		return DonationKey(t.Donor.UserID)
	}
	var adopter int64
	if t.Adopter != nil {
		adopter = t.Adopter.UserID
	}
	return AdoptionKey(t.PetID, adopter)
}

// Emailed reports whether the backend confirmed delivery to every recipient.
func (t Term) Emailed() bool {
	return t.EmailSentAt != nil
}

// StaleFields compares the snapshot with the live profiles and returns the
// differing fields prefixed with the party role. A nil live adopter is not compared.
func (t Term) StaleFields(donor Party, adopter *Party) []string {
	var out []string
	for _, f := range t.Donor.Diff(donor) {
		out = append(out, "donor."+f)
	}
	if t.Adopter != nil && adopter != nil {
		for _, f := range t.Adopter.Diff(*adopter) {
			out = append(out, "adopter."+f)
		}
	}
	return out
}

// Clone returns a deep copy.
func (t *Term) Clone() *Term {
	if t == nil {
		return nil
	}
	c := *t
	if t.Adopter != nil {
		a := *t.Adopter
		c.Adopter = &a
	}
	if t.EmailSentAt != nil {
		at := *t.EmailSentAt
		c.EmailSentAt = &at
	}
	return &c
}

type hashedContent struct {
	Kind         Kind   `json:"kind"`
	PetID        int64  `json:"petId,omitempty"`
	Donor        Party  `json:"donor"`
	Adopter      *Party `json:"adopter,omitempty"`
	Signature    string `json:"signature"`
	Observations string `json:"observations"`
}

// ContentHash fingerprints the signed content of t: kind, pet, both party
// snapshots, signature and observations.
func ContentHash(t Term) string {
	content := hashedContent{
		Kind:         t.Kind,
		PetID:        t.PetID,
		Donor:        t.Donor.Normalize(),
		Signature:    strings.TrimSpace(t.Signature),
		Observations: strings.TrimSpace(t.Observations),
	}
	if t.Adopter != nil {
		a := t.Adopter.Normalize()
		content.Adopter = &a
	}
	payload, _ := json.Marshal(content)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Recipient roles reported by the email endpoint.
const (
	RoleDonor   = "donor"
	RoleAdopter = "adopter"
)

// RecipientStatus is the per-recipient outcome of an email send.
type RecipientStatus struct {
	Role      string
	Email     string
	Delivered bool
	Error     string
}

// Delivery is the result of one email call.
type Delivery struct {
	Recipients []RecipientStatus
}

// Complete is true when there is at least one recipient and all were accepted.
func (d Delivery) Complete() bool {
	if len(d.Recipients) == 0 {
		return false
	}
	for _, r := range d.Recipients {
		if !r.Delivered {
			return false
		}
	}
	return true
}

// Failed lists the recipients that were not accepted.
func (d Delivery) Failed() []RecipientStatus {
	var out []RecipientStatus
	for _, r := range d.Recipients {
		if !r.Delivered {
			out = append(out, r)
		}
	}
	return out
}

// DeliveryError reports an email send where not every recipient was accepted.
type DeliveryError struct {
	Failed []RecipientStatus
}

func (e *DeliveryError) Error() string {
	if len(e.Failed) == 0 {
		return "term email was not delivered"
	}
	parts := make([]string, 0, len(e.Failed))
	for _, r := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s <%s>", r.Role, r.Email))
	}
	return "term email not delivered to " + strings.Join(parts, ", ")
}
