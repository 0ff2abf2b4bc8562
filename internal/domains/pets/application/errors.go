package application

import "errors"

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid pet input")
	// ErrNotPermitted is returned when the status guard refuses an action.
	ErrNotPermitted = errors.New("action not permitted for this pet")
	// ErrToggleInFlight asks the caller to wait for the pending toggle of the same pet.
	ErrToggleInFlight = errors.New("favorite toggle in progress, please wait")
	// ErrToggleFailed wraps the remote failure after the optimistic flip was reverted.
	ErrToggleFailed = errors.New("favorite toggle failed")
	// ErrNoReadoptionOffer is returned when confirming a re-adoption that was never offered.
	ErrNoReadoptionOffer = errors.New("no re-adoption offer to confirm")
	// ErrTermNotEmailed refuses the completion until the adoption term reached both parties.
	ErrTermNotEmailed = errors.New("adoption term has not been emailed to both parties")
)
