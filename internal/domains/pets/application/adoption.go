package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	pettypes "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application/types"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/keylock"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

type adoptKey struct {
	petID  int64
	userID int64
}

// Orchestrator runs the "add pet to my pets" flow and the post-term completion.
type Orchestrator struct {
	catalog   ports.Catalog
	directory ports.Directory
	adoptions ports.Adoptions
	finalizer ports.StatusFinalizer
	terms     ports.TermGate
	gate      ports.SponsorGate
	logger    *slog.Logger
	now       func() time.Time
	newKey    func() string

	flight keylock.Flight[adoptKey, pettypes.AdoptResult]
	mu     sync.Mutex
	offers map[adoptKey]struct{}
}

// AdoptionOption configures an Orchestrator.
type AdoptionOption func(*Orchestrator)

// WithSponsorGate sets the interstitial presented before a forced re-adoption.
func WithSponsorGate(gate ports.SponsorGate) AdoptionOption {
	return func(o *Orchestrator) {
		if gate != nil {
			o.gate = gate
		}
	}
}

// WithAdoptionLogger injects a slog logger.
func WithAdoptionLogger(logger *slog.Logger) AdoptionOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAdoptionClock overrides the time source for deterministic testing.
func WithAdoptionClock(now func() time.Time) AdoptionOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIdempotencyKeys overrides the idempotency key generator.
func WithIdempotencyKeys(next func() string) AdoptionOption {
	return func(o *Orchestrator) {
		if next != nil {
			o.newKey = next
		}
	}
}

// NewOrchestrator wires the adoption flow with its dependencies.
func NewOrchestrator(catalog ports.Catalog, directory ports.Directory, adoptions ports.Adoptions, finalizer ports.StatusFinalizer, terms ports.TermGate, opts ...AdoptionOption) *Orchestrator {
	o := &Orchestrator{
		catalog:   catalog,
		directory: directory,
		adoptions: adoptions,
		finalizer: finalizer,
		terms:     terms,
		gate:      noGate{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		newKey:    uuid.NewString,
		offers:    map[adoptKey]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// RequestAdopt asks the backend to add petID to userID's pets. The returned
// error is reserved for failures the caller must handle outside the flow
// (expired session, cancelled context); every other result is an Outcome.
//
// A second call for the same pair while the first is in flight does not reach
// the backend; it reports AlreadyAdded when the first call added the pet.
func (o *Orchestrator) RequestAdopt(ctx context.Context, petID, userID int64) (pettypes.AdoptResult, error) {
	key := adoptKey{petID: petID, userID: userID}
	res, err, leader := o.flight.Do(ctx, key, func() (pettypes.AdoptResult, error) {
		return o.requestAdopt(ctx, key, false)
	})
	if !leader && err == nil && res.Outcome == pettypes.OutcomeAdded {
		res.Outcome = pettypes.OutcomeAlreadyAdded
		res.Message = "pet is already in your pets"
	}
	return res, err
}

// ConfirmReadoption forces the association after the user accepted a
// re-adoption offer. The sponsor interstitial runs before the request.
func (o *Orchestrator) ConfirmReadoption(ctx context.Context, petID, userID int64) (pettypes.AdoptResult, error) {
	key := adoptKey{petID: petID, userID: userID}
	o.mu.Lock()
	_, offered := o.offers[key]
	o.mu.Unlock()
	if !offered {
		return pettypes.AdoptResult{}, ErrNoReadoptionOffer
	}
	o.gate.Present(ctx)
	res, err, leader := o.flight.Do(ctx, key, func() (pettypes.AdoptResult, error) {
		return o.requestAdopt(ctx, key, true)
	})
	if !leader && err == nil && res.Outcome == pettypes.OutcomeAdded {
		res.Outcome = pettypes.OutcomeAlreadyAdded
	}
	return res, err
}

// CompleteAdoption runs after the adoption term between the pet's donor and
// adopterID was emailed; it returns ErrTermNotEmailed otherwise, before any
// write. It marks the pet Adopted and then runs handoff, which opens the
// conversation. The status write is best effort: a failure is logged and
// reported in StatusErr, and handoff runs regardless.
func (o *Orchestrator) CompleteAdoption(ctx context.Context, petID, adopterID int64, handoff func(context.Context) error) (pettypes.Completion, error) {
	if petID <= 0 || adopterID <= 0 {
		return pettypes.Completion{}, fmt.Errorf("%w: pet and adopter ids must be positive", ErrInvalidInput)
	}
	emailed, err := o.terms.AdoptionTermEmailed(ctx, petID, adopterID)
	if err != nil {
		return pettypes.Completion{}, fmt.Errorf("check adoption term: %w", err)
	}
	if !emailed {
		return pettypes.Completion{}, fmt.Errorf("%w: pet %d, adopter %d", ErrTermNotEmailed, petID, adopterID)
	}
	done := pettypes.Completion{PetID: petID}
	if err := o.finalizer.MarkAdopted(ctx, petID); err != nil {
		done.StatusErr = err
		o.logger.ErrorContext(ctx, "adopted status write failed, continuing hand-off",
			slog.Int64("pet.id", petID), slog.String("error", err.Error()))
	} else {
		_, err := o.catalog.Update(context.WithoutCancel(ctx), petID, func(p *domain.Pet) error {
			return p.UpdateStatus(domain.StatusAdopted, o.now())
		})
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			o.logger.WarnContext(ctx, "local catalog not patched", slog.Int64("pet.id", petID), slog.String("error", err.Error()))
		}
	}
	if handoff != nil {
		done.HandoffErr = handoff(ctx)
	}
	return done, nil
}

func (o *Orchestrator) requestAdopt(ctx context.Context, key adoptKey, force bool) (pettypes.AdoptResult, error) {
	res := pettypes.AdoptResult{PetID: key.petID, UserID: key.userID}

	pet, err := o.lookup(ctx, key.petID)
	if err != nil {
		return o.classify(ctx, key, res, err)
	}
	if guard := domain.CheckAdoptionRequest(*pet, key.userID); !guard.Allowed {
		res.Outcome = pettypes.OutcomeBlocked
		res.Message = guard.Reason
		return res, nil
	}

	assoc, err := o.adoptions.CreateAssociation(ctx, ports.AssociationRequest{
		PetID:          key.petID,
		UserID:         key.userID,
		Force:          force,
		IdempotencyKey: o.newKey(),
	})
	if err != nil {
		return o.classify(ctx, key, res, err)
	}
	o.clearOffer(key)
	res.Outcome = pettypes.OutcomeAdded
	res.Association = assoc
	return res, nil
}

func (o *Orchestrator) lookup(ctx context.Context, petID int64) (*domain.Pet, error) {
	pet, err := o.catalog.Get(ctx, petID)
	if err == nil {
		return pet, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}
	pet, err = o.directory.GetPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	if err := o.catalog.Put(ctx, pet); err != nil {
		o.logger.WarnContext(ctx, "caching fetched pet failed", slog.Int64("pet.id", petID), slog.String("error", err.Error()))
	}
	return pet, nil
}

func (o *Orchestrator) classify(ctx context.Context, key adoptKey, res pettypes.AdoptResult, err error) (pettypes.AdoptResult, error) {
	res.Message = remoteerr.MessageOf(err)
	switch remoteerr.KindOf(err) {
	case remoteerr.KindSession, remoteerr.KindCanceled:
		return pettypes.AdoptResult{}, err
	case remoteerr.KindConflict:
		o.clearOffer(key)
		res.Outcome = pettypes.OutcomeAlreadyAdded
	case remoteerr.KindSelfAction, remoteerr.KindValidation, remoteerr.KindNotFound:
		res.Outcome = pettypes.OutcomeBlocked
	case remoteerr.KindHistoryBlock:
		o.mu.Lock()
		o.offers[key] = struct{}{}
		o.mu.Unlock()
		res.Outcome = pettypes.OutcomeReadoptionOffered
	case remoteerr.KindTransient, remoteerr.KindDelivery:
		res.Outcome = pettypes.OutcomeRetryable
	default:
		o.logger.WarnContext(ctx, "unrecognized adoption failure",
			slog.Int64("pet.id", key.petID), slog.Int64("user.id", key.userID), slog.String("message", res.Message))
		res.Outcome = pettypes.OutcomeRetryable
	}
	return res, nil
}

func (o *Orchestrator) clearOffer(key adoptKey) {
	o.mu.Lock()
	delete(o.offers, key)
	o.mu.Unlock()
}

type noGate struct{}

func (noGate) Present(context.Context) {}

var _ ports.AdoptionService = (*Orchestrator)(nil)
