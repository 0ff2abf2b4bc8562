package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/keylock"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

var (
	// ErrTermBusy is returned while another create, update or email of the same term is in flight.
	ErrTermBusy = errors.New("term operation in progress, please wait")
	// ErrControllerClosed is returned by operations started after Close.
	ErrControllerClosed = errors.New("term controller closed")
)

// DefaultRevalidateLimit bounds concurrent term fetches during cache revalidation.
const DefaultRevalidateLimit = 4

// Terms owns the state shared by every term controller of a session: the
// per-term operation lock and the record of terms re-signed in this session.
type Terms struct {
	gateway  ports.Gateway
	profiles ports.Profiles
	owners   ports.PetOwners
	cache    ports.SentCache
	gate     ports.SponsorGate
	logger   *slog.Logger
	locks    keylock.Set[string]
	limit    int

	mu       sync.Mutex
	resigned map[domain.Key]bool
}

// Option configures Terms.
type Option func(*Terms)

// WithSponsorGate sets the interstitial shown after a term is emailed.
func WithSponsorGate(gate ports.SponsorGate) Option {
	return func(t *Terms) {
		if gate != nil {
			t.gate = gate
		}
	}
}

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Terms) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRevalidateLimit overrides how many term fetches Revalidate runs at once.
func WithRevalidateLimit(n int) Option {
	return func(t *Terms) {
		if n > 0 {
			t.limit = n
		}
	}
}

// NewTerms wires the term lifecycle service.
func NewTerms(gateway ports.Gateway, profiles ports.Profiles, owners ports.PetOwners, cache ports.SentCache, opts ...Option) *Terms {
	t := &Terms{
		gateway:  gateway,
		profiles: profiles,
		owners:   owners,
		cache:    cache,
		gate:     noGate{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		limit:    DefaultRevalidateLimit,
		resigned: map[domain.Key]bool{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// For returns a controller bound to key. Controllers for the same key share
// the operation lock.
func (t *Terms) For(key domain.Key) (*Controller, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return &Controller{terms: t, machine: domain.NewMachine(key)}, nil
}

// Resigned reports whether the term for key was re-signed after going stale
// during this session.
func (t *Terms) Resigned(key domain.Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resigned[key]
}

func (t *Terms) markResigned(key domain.Key) {
	t.mu.Lock()
	t.resigned[key] = true
	t.mu.Unlock()
}

// parties loads the live donor and adopter profiles for key.
func (t *Terms) parties(ctx context.Context, key domain.Key) (domain.Party, *domain.Party, error) {
	if key.Kind == domain.KindDonation {
		donor, err := t.profiles.Profile(ctx, key.DonorID)
		if err != nil {
			return domain.Party{}, nil, fmt.Errorf("load donor profile: %w", err)
		}
		return donor, nil, nil
	}
	ownerID, err := t.owners.OwnerOf(ctx, key.PetID)
	if err != nil {
		return domain.Party{}, nil, fmt.Errorf("resolve pet owner: %w", err)
	}
	donor, err := t.profiles.Profile(ctx, ownerID)
	if err != nil {
		return domain.Party{}, nil, fmt.Errorf("load donor profile: %w", err)
	}
	adopter, err := t.profiles.Profile(ctx, key.AdopterID)
	if err != nil {
		return domain.Party{}, nil, fmt.Errorf("load adopter profile: %w", err)
	}
	return donor, &adopter, nil
}

// fetch returns the term for key, or nil when the backend has none.
func (t *Terms) fetch(ctx context.Context, key domain.Key) (*domain.Term, error) {
	term, err := t.gateway.Fetch(ctx, key)
	if err != nil {
		if remoteerr.KindOf(err) == remoteerr.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	return term, nil
}

type noGate struct{}

func (noGate) Present(context.Context) {}
