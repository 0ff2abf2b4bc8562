package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[int64]domain.Party
}

func newFakeProfiles(parties ...domain.Party) *fakeProfiles {
	p := &fakeProfiles{profiles: map[int64]domain.Party{}}
	for _, party := range parties {
		p.profiles[party.UserID] = party
	}
	return p
}

func (p *fakeProfiles) Profile(_ context.Context, userID int64) (domain.Party, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	party, ok := p.profiles[userID]
	if !ok {
		return domain.Party{}, remoteerr.New("fetch profile", remoteerr.KindNotFound, "Usuário não encontrado")
	}
	return party, nil
}

func (p *fakeProfiles) set(party domain.Party) {
	p.mu.Lock()
	p.profiles[party.UserID] = party
	p.mu.Unlock()
}

type fakeOwners map[int64]int64

func (o fakeOwners) OwnerOf(_ context.Context, petID int64) (int64, error) {
	owner, ok := o[petID]
	if !ok {
		return 0, remoteerr.New("fetch pet", remoteerr.KindNotFound, "Pet não encontrado")
	}
	return owner, nil
}

// fakeGateway mimics the backend: one term per key, snapshots taken from the
// profiles at save time, and addresses containing "bounce" fail delivery.
type fakeGateway struct {
	profiles *fakeProfiles
	owners   fakeOwners

	mu       sync.Mutex
	terms    map[domain.Key]*domain.Term
	nextID   int64
	saves    []ports.SaveRequest
	fetches  int
	emails   int
	saveErr  error
	emailErr error

	// release, when set, blocks Save and SendEmail until closed.
	release chan struct{}
	entered chan struct{}
}

func newFakeGateway(profiles *fakeProfiles, owners fakeOwners) *fakeGateway {
	return &fakeGateway{profiles: profiles, owners: owners, terms: map[domain.Key]*domain.Term{}}
}

func (g *fakeGateway) wait() {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
}

func (g *fakeGateway) Save(ctx context.Context, req ports.SaveRequest) (*domain.Term, error) {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, req)
	if g.saveErr != nil {
		return nil, g.saveErr
	}
	existing, exists := g.terms[req.Key]
	if exists && !req.Update {
		return nil, remoteerr.Classify("save term", 400, "Termo já existe para esta adoção")
	}
	term := &domain.Term{Kind: req.Key.Kind, Signature: req.Signature, Observations: req.Observations, CreatedAt: time.Now()}
	if req.Key.Kind == domain.KindAdoption {
		owner := g.owners[req.Key.PetID]
		if owner == req.Key.AdopterID {
			return nil, remoteerr.Classify("save term", 400, "Você não pode adotar seu próprio pet")
		}
		term.PetID = req.Key.PetID
		term.Donor, _ = g.profiles.Profile(ctx, owner)
		adopter, _ := g.profiles.Profile(ctx, req.Key.AdopterID)
		term.Adopter = &adopter
	} else {
		term.Donor, _ = g.profiles.Profile(ctx, req.Key.DonorID)
	}
	if exists {
		term.ID = existing.ID
	} else {
		g.nextID++
		term.ID = g.nextID
	}
	term.Hash = domain.ContentHash(*term)
	g.terms[req.Key] = term
	return term.Clone(), nil
}

func (g *fakeGateway) Fetch(_ context.Context, key domain.Key) (*domain.Term, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	term, ok := g.terms[key]
	if !ok {
		return nil, remoteerr.New("fetch term", remoteerr.KindNotFound, "Termo não encontrado")
	}
	return term.Clone(), nil
}

func (g *fakeGateway) SendEmail(_ context.Context, _ domain.Kind, termID int64) (domain.Delivery, error) {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emails++
	if g.emailErr != nil {
		return domain.Delivery{}, g.emailErr
	}
	for _, term := range g.terms {
		if term.ID != termID {
			continue
		}
		delivery := domain.Delivery{Recipients: []domain.RecipientStatus{recipient(domain.RoleDonor, term.Donor)}}
		if term.Adopter != nil {
			delivery.Recipients = append(delivery.Recipients, recipient(domain.RoleAdopter, *term.Adopter))
		}
		if delivery.Complete() {
			now := time.Now()
			term.EmailSentAt = &now
		}
		return delivery, nil
	}
	return domain.Delivery{}, remoteerr.New("email term", remoteerr.KindNotFound, "Termo não encontrado")
}

func (g *fakeGateway) put(term *domain.Term) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if term.ID == 0 {
		g.nextID++
		term.ID = g.nextID
	}
	g.terms[term.Key()] = term
}

func (g *fakeGateway) fetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

func (g *fakeGateway) saveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saves)
}

func recipient(role string, p domain.Party) domain.RecipientStatus {
	if strings.Contains(p.Email, "bounce") {
		return domain.RecipientStatus{Role: role, Email: p.Email, Error: "mailbox unavailable"}
	}
	return domain.RecipientStatus{Role: role, Email: p.Email, Delivered: true}
}

type countingGate struct {
	mu        sync.Mutex
	presented int
}

func (g *countingGate) Present(context.Context) {
	g.mu.Lock()
	g.presented++
	g.mu.Unlock()
}

func (g *countingGate) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.presented
}
