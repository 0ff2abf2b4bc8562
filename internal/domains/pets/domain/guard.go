package domain

// Actions is the set of things a viewer may do with a pet.
type Actions struct {
	CanFavorite     bool
	CanRequestAdopt bool
	CanEdit         bool
	CanDelete       bool
	CanCommunicate  bool
	// CanOffer is the owner action that publishes a pet as Available.
	CanOffer bool
}

// PermittedActions maps the pet status and the viewer's relationship to the pet
// to the actions the UI may offer. It never fails: unknown statuses permit nothing.
//
// CanCommunicate only says status does not forbid messaging; the term gate
// still has to reach Emailed before a conversation opens.
func PermittedActions(pet Pet, viewerID int64) Actions {
	if !pet.Status.Known() {
		return Actions{}
	}
	if viewerID == pet.OwnerID {
		mutable := pet.Status == StatusDraft || pet.Status == StatusPending
		return Actions{
			CanFavorite: true,
			CanEdit:     mutable,
			CanDelete:   mutable,
			CanOffer:    mutable,
		}
	}
	return Actions{
		CanFavorite:     pet.Status != StatusDraft,
		CanRequestAdopt: pet.Status == StatusAvailable,
		CanCommunicate:  true,
	}
}

// GuardResult explains a guard decision.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// CheckAdoptionRequest decides whether viewerID may ask to adopt pet.
func CheckAdoptionRequest(pet Pet, viewerID int64) GuardResult {
	switch {
	case !pet.Status.Known():
		return GuardResult{Reason: "pet status is not recognized"}
	case viewerID == pet.OwnerID:
		return GuardResult{Reason: "you cannot adopt your own pet"}
	case pet.Status == StatusAdopted:
		return GuardResult{Reason: "pet has already been adopted"}
	case pet.Status != StatusAvailable:
		return GuardResult{Reason: "pet is not available for adoption"}
	}
	return GuardResult{Allowed: true}
}
