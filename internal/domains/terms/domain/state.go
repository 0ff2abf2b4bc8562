package domain

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of one term as seen by the client.
type State int

const (
	StateNone State = iota
	StateDrafting
	StateCreated
	StateEmailPending
	StateEmailed
	// StateStale means a party's live profile no longer matches the snapshot.
	StateStale
	// StateBlocked is terminal: the backend refused the term as a self-adoption.
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateDrafting:
		return "drafting"
	case StateCreated:
		return "created"
	case StateEmailPending:
		return "email_pending"
	case StateEmailed:
		return "emailed"
	case StateStale:
		return "stale"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Draft is the content of the signature form. Donor and Adopter are the live
// profiles the form was filled from; Adopter is nil for donation terms.
type Draft struct {
	Signature    string
	Observations string
	Donor        Party
	Adopter      *Party
}

// Machine is the full controller state. Transition never mutates its input.
type Machine struct {
	Key         Key
	State       State
	Update      bool
	Draft       Draft
	Term        *Term
	StaleFields []string
	// Resigned is set once an update of a stale term was saved.
	Resigned bool

	donor   Party
	adopter *Party
}

// NewMachine starts a machine for key in StateNone.
func NewMachine(key Key) Machine {
	return Machine{Key: key}
}

// Event is an input to Transition.
type Event interface {
	termEvent()
}

// Loaded carries a fetched term (nil when none exists) with the live profiles
// of the parties. Adopter is nil for donation terms.
type Loaded struct {
	Term    *Term
	Donor   Party
	Adopter *Party
}

// ProfileChanged reports new live profiles without refetching the term.
type ProfileChanged struct {
	Donor   Party
	Adopter *Party
}

// Compose opens the signature form.
type Compose struct{}

// Submit sends the signature form.
type Submit struct {
	Signature    string
	Observations string
}

// Saved is the backend's answer to a successful create or update.
type Saved struct {
	Term *Term
}

// AlreadyExists is the backend refusing a create because the term exists.
type AlreadyExists struct{}

// SaveFailed is any other save failure.
type SaveFailed struct {
	Err error
}

// RequestEmail asks the backend to email the term to both parties.
type RequestEmail struct{}

// EmailDelivered is the per-recipient report of an email call.
type EmailDelivered struct {
	Delivery Delivery
}

// EmailFailed is an email call that failed as a whole. Delivery holds any
// per-recipient report that came with the failure.
type EmailFailed struct {
	Delivery Delivery
	Err      error
}

// SelfAdoption is the backend refusing a term between a user and their own pet.
type SelfAdoption struct {
	Message string
}

func (Loaded) termEvent()         {}
func (ProfileChanged) termEvent() {}
func (Compose) termEvent()        {}
func (Submit) termEvent()         {}
func (Saved) termEvent()          {}
func (AlreadyExists) termEvent()  {}
func (SaveFailed) termEvent()     {}
func (RequestEmail) termEvent()   {}
func (EmailDelivered) termEvent() {}
func (EmailFailed) termEvent()    {}
func (SelfAdoption) termEvent()   {}

// Effect is work the controller performs after a transition.
type Effect interface {
	termEffect()
}

// ShowForm presents the signature form.
type ShowForm struct {
	Draft Draft
}

// SaveTerm creates (Update false) or updates the term.
type SaveTerm struct {
	Update bool
	Draft  Draft
}

// FetchTerm reloads the term from the backend.
type FetchTerm struct{}

// SendEmail asks the backend to email the term.
type SendEmail struct {
	TermID int64
}

// MarkEmailed records the pet in the local emailed-terms cache.
type MarkEmailed struct {
	PetID int64
}

// PresentSponsor runs the sponsor interstitial.
type PresentSponsor struct{}

// NoticeLevel grades user-facing notices.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notify shows a message to the user.
type Notify struct {
	Level   NoticeLevel
	Message string
}

func (ShowForm) termEffect()       {}
func (SaveTerm) termEffect()       {}
func (FetchTerm) termEffect()      {}
func (SendEmail) termEffect()      {}
func (MarkEmailed) termEffect()    {}
func (PresentSponsor) termEffect() {}
func (Notify) termEffect()         {}

// Transition computes the next machine and the effects to run for ev.
func Transition(m Machine, ev Event) (Machine, []Effect, error) {
	next := m
	next.Term = m.Term.Clone()
	next.StaleFields = append([]string(nil), m.StaleFields...)

	if m.State == StateBlocked {
		return m, nil, ErrBlocked
	}

	switch e := ev.(type) {
	case Loaded:
		return next.loaded(e)

	case ProfileChanged:
		next.setLive(e.Donor, e.Adopter)
		if next.Term == nil || (m.State != StateCreated && m.State != StateEmailed) {
			return next, nil, nil
		}
		stale := next.Term.StaleFields(e.Donor, e.Adopter)
		if len(stale) == 0 {
			return next, nil, nil
		}
		next.State = StateStale
		next.StaleFields = stale
		return next, []Effect{Notify{Level: NoticeInfo, Message: staleMessage(stale)}}, nil

	case Compose:
		switch m.State {
		case StateNone, StateDrafting:
			next.State = StateDrafting
			if m.State == StateNone {
				next.Draft = next.liveDraft()
			}
		case StateStale:
			next.State = StateDrafting
			next.Update = true
			next.Draft = next.liveDraft()
		default:
			return m, nil, fmt.Errorf("%w: compose in %s", ErrInvalidTransition, m.State)
		}
		return next, []Effect{ShowForm{Draft: next.Draft}}, nil

	case Submit:
		if m.State != StateDrafting && m.State != StateNone {
			return m, nil, fmt.Errorf("%w: submit in %s", ErrInvalidTransition, m.State)
		}
		draft := Draft{
			Signature:    strings.TrimSpace(e.Signature),
			Observations: strings.TrimSpace(e.Observations),
			Donor:        m.Draft.Donor,
			Adopter:      m.Draft.Adopter,
		}
		if draft.Signature == "" {
			return m, nil, ErrMissingSignature
		}
		if m.Key.Kind == KindDonation && draft.Observations == "" {
			return m, nil, ErrMissingMotive
		}
		next.State = StateDrafting
		next.Draft = draft
		return next, []Effect{SaveTerm{Update: m.Update, Draft: draft}}, nil

	case Saved:
		if m.State != StateDrafting || e.Term == nil {
			return m, nil, fmt.Errorf("%w: saved in %s", ErrInvalidTransition, m.State)
		}
		next.Term = e.Term.Clone()
		next.State = StateCreated
		if next.Term.Emailed() {
			next.State = StateEmailed
		}
		if m.Update {
			next.Resigned = true
		}
		next.Update = false
		next.StaleFields = nil
		return next, []Effect{Notify{Level: NoticeInfo, Message: "term saved"}}, nil

	case AlreadyExists:
		if m.State != StateDrafting {
			return m, nil, fmt.Errorf("%w: already exists in %s", ErrInvalidTransition, m.State)
		}
		return next, []Effect{
			Notify{Level: NoticeInfo, Message: "a term already exists for this adoption, loading it"},
			FetchTerm{},
		}, nil

	case SaveFailed:
		return next, []Effect{Notify{Level: NoticeError, Message: errorMessage("term could not be saved", e.Err)}}, nil

	case RequestEmail:
		if m.State != StateCreated || next.Term == nil {
			return m, nil, fmt.Errorf("%w: email in %s", ErrInvalidTransition, m.State)
		}
		next.State = StateEmailPending
		return next, []Effect{SendEmail{TermID: next.Term.ID}}, nil

	case EmailDelivered:
		if m.State != StateEmailPending {
			return m, nil, fmt.Errorf("%w: delivery in %s", ErrInvalidTransition, m.State)
		}
		if !e.Delivery.Complete() {
			next.State = StateCreated
			msg := (&DeliveryError{Failed: e.Delivery.Failed()}).Error()
			return next, []Effect{Notify{Level: NoticeError, Message: msg}}, nil
		}
		next.State = StateEmailed
		effects := []Effect{}
		if m.Key.Kind == KindAdoption {
			effects = append(effects, MarkEmailed{PetID: m.Key.PetID})
		}
		effects = append(effects,
			Notify{Level: NoticeInfo, Message: "term emailed to both parties"},
			PresentSponsor{},
		)
		return next, effects, nil

	case EmailFailed:
		if m.State != StateEmailPending {
			return m, nil, fmt.Errorf("%w: email failure in %s", ErrInvalidTransition, m.State)
		}
		next.State = StateCreated
		err := e.Err
		if failed := e.Delivery.Failed(); len(failed) > 0 {
			err = &DeliveryError{Failed: failed}
		}
		return next, []Effect{Notify{Level: NoticeError, Message: errorMessage("term email failed, try again", err)}}, nil

	case SelfAdoption:
		next.State = StateBlocked
		msg := e.Message
		if msg == "" {
			msg = "you cannot sign a term for your own pet"
		}
		return next, []Effect{Notify{Level: NoticeError, Message: msg}}, nil
	}
	return m, nil, fmt.Errorf("%w: unsupported event %T", ErrInvalidTransition, ev)
}

func (m Machine) loaded(e Loaded) (Machine, []Effect, error) {
	m.setLive(e.Donor, e.Adopter)
	m.StaleFields = nil
	m.Update = false
	if e.Term == nil {
		m.Term = nil
		m.State = StateNone
		m.Draft = m.liveDraft()
		return m, []Effect{ShowForm{Draft: m.Draft}}, nil
	}
	m.Term = e.Term.Clone()
	if stale := m.Term.StaleFields(e.Donor, e.Adopter); len(stale) > 0 {
		// Stale terms go straight back to the form as an update, filled from
		// the live profiles of both parties.
		m.StaleFields = stale
		m.State = StateDrafting
		m.Update = true
		m.Draft = m.liveDraft()
		return m, []Effect{
			Notify{Level: NoticeInfo, Message: staleMessage(stale)},
			ShowForm{Draft: m.Draft},
		}, nil
	}
	if m.Term.Emailed() {
		m.State = StateEmailed
		var effects []Effect
		if m.Key.Kind == KindAdoption {
			effects = append(effects, MarkEmailed{PetID: m.Key.PetID})
		}
		return m, effects, nil
	}
	m.State = StateCreated
	return m, nil, nil
}

func (m *Machine) setLive(donor Party, adopter *Party) {
	m.donor = donor
	if adopter != nil {
		a := *adopter
		m.adopter = &a
	}
}

// liveDraft fills the form from the live profiles. The signature defaults to
// the signing party's name: the adopter for adoption terms, the donor otherwise.
func (m Machine) liveDraft() Draft {
	d := Draft{Donor: m.donor}
	if m.adopter != nil {
		a := *m.adopter
		d.Adopter = &a
	}
	d.Signature = d.Donor.Name
	if m.Key.Kind == KindAdoption && d.Adopter != nil {
		d.Signature = d.Adopter.Name
	}
	return d
}

func staleMessage(fields []string) string {
	return "personal data changed since the term was signed (" + strings.Join(fields, ", ") + "), please sign again"
}

func errorMessage(prefix string, err error) string {
	if err == nil {
		return prefix
	}
	return prefix + ": " + err.Error()
}
