package domain

import "time"

// Event is something that happened to a pet in the local catalog.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// PetStatusChanged is raised when a pet moves between lifecycle statuses.
type PetStatusChanged struct {
	PetID      int64
	FromStatus Status
	ToStatus   Status
	At         time.Time
}

func (e PetStatusChanged) EventName() string     { return "pets.pet.status_changed" }
func (e PetStatusChanged) OccurredAt() time.Time { return e.At }

// FavoriteChanged is raised when the user's favorite flag flips, including
// the rollback of a failed toggle.
type FavoriteChanged struct {
	PetID    int64
	Favorite bool
	At       time.Time
}

func (e FavoriteChanged) EventName() string     { return "pets.pet.favorite_changed" }
func (e FavoriteChanged) OccurredAt() time.Time { return e.At }
