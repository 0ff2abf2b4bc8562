package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle state of a pet listed for adoption.
// StatusPending is also reported by the backend as "unspecified".
type Status int

const (
	StatusDraft     Status = 1
	StatusAvailable Status = 2
	StatusPending   Status = 3
	StatusAdopted   Status = 4
)

// Known reports whether s is one of the statuses the engine understands.
func (s Status) Known() bool {
	return s >= StatusDraft && s <= StatusAdopted
}

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusAvailable:
		return "available"
	case StatusPending:
		return "pending"
	case StatusAdopted:
		return "adopted"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseStatus accepts either the numeric code or the lowercase name.
func ParseStatus(raw string) (Status, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		s := Status(n)
		if !s.Known() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, n)
		}
		return s, nil
	}
	switch raw {
	case "draft":
		return StatusDraft, nil
	case "available":
		return StatusAvailable, nil
	case "pending", "unspecified":
		return StatusPending, nil
	case "adopted":
		return StatusAdopted, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Pet is the client-side copy of a listed pet. The backend owns it; the client
// patches Favorite and Status optimistically and reconciles on the next fetch.
type Pet struct {
	ID       int64
	OwnerID  int64
	Name     string
	BreedID  int64
	Breed    string
	AgeBand  string
	PhotoURL string
	Diseases []string
	Status   Status

	Favorite    bool
	FavoritedAt time.Time

	events []Event
}

// ErrInvalidStatus rejects status codes outside Draft..Adopted.
var ErrInvalidStatus = errors.New("invalid pet status")

// UpdateStatus moves the pet to status and records the change.
func (p *Pet) UpdateStatus(status Status, at time.Time) error {
	if !status.Known() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, int(status))
	}
	if p.Status == status {
		return nil
	}
	from := p.Status
	p.Status = status
	p.record(PetStatusChanged{PetID: p.ID, FromStatus: from, ToStatus: status, At: at})
	return nil
}

// SetFavorite flips the client-side favorite flag.
func (p *Pet) SetFavorite(favorite bool, at time.Time) {
	if p.Favorite != favorite {
		p.record(FavoriteChanged{PetID: p.ID, Favorite: favorite, At: at})
	}
	p.Favorite = favorite
	if favorite {
		p.FavoritedAt = at
	} else {
		p.FavoritedAt = time.Time{}
	}
}

// FavoriteState is the part of a pet a favorite toggle may need to restore.
type FavoriteState struct {
	Favorite    bool
	FavoritedAt time.Time
}

// FavoriteState snapshots the favorite fields.
func (p *Pet) FavoriteState() FavoriteState {
	return FavoriteState{Favorite: p.Favorite, FavoritedAt: p.FavoritedAt}
}

// RestoreFavorite puts back a snapshot taken with FavoriteState.
func (p *Pet) RestoreFavorite(s FavoriteState) {
	p.Favorite = s.Favorite
	p.FavoritedAt = s.FavoritedAt
}

// Clone returns a deep copy without pending events.
func (p *Pet) Clone() *Pet {
	if p == nil {
		return nil
	}
	clone := *p
	clone.events = nil
	if len(p.Diseases) > 0 {
		clone.Diseases = append([]string{}, p.Diseases...)
	}
	return &clone
}

// Events returns the events recorded since the last ClearEvents.
func (p *Pet) Events() []Event {
	return append([]Event(nil), p.events...)
}

// ClearEvents drops recorded events once they have been delivered.
func (p *Pet) ClearEvents() {
	p.events = nil
}

func (p *Pet) record(e Event) {
	p.events = append(p.events, e)
}

// Association links an adopter to a pet in their "my pets" list.
type Association struct {
	ID         int64
	PetID      int64
	UserID     int64
	CreatedAt  time.Time
	ReleasedAt *time.Time
}

// Active reports whether the association has not been released.
func (a Association) Active() bool {
	return a.ReleasedAt == nil
}

// ReferenceKind names a reference data table.
type ReferenceKind string

const (
	ReferenceBreeds   ReferenceKind = "breeds"
	ReferenceStatuses ReferenceKind = "statuses"
	ReferenceAgeBands ReferenceKind = "age-bands"
	ReferenceDiseases ReferenceKind = "diseases"
)

// Valid reports whether k is a known reference table.
func (k ReferenceKind) Valid() bool {
	switch k {
	case ReferenceBreeds, ReferenceStatuses, ReferenceAgeBands, ReferenceDiseases:
		return true
	}
	return false
}

// ReferenceItem is one row of a reference table.
type ReferenceItem struct {
	Kind ReferenceKind
	ID   int64
	Name string
}
