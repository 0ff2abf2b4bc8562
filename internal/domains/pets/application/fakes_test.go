package application

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

type fakeViewer struct {
	id  int64
	err error
}

func (v fakeViewer) CurrentUserID(context.Context) (int64, error) { return v.id, v.err }

type fakeFavorites struct {
	mu      sync.Mutex
	calls   []string
	err     error
	release chan struct{}
	entered chan struct{}
	server  map[int64]bool
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{server: map[int64]bool{}}
}

func (f *fakeFavorites) IsFavorite(_ context.Context, _, petID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "is")
	return f.server[petID], nil
}

func (f *fakeFavorites) AddFavorite(_ context.Context, _, petID int64) error {
	return f.write("add", petID, true)
}

func (f *fakeFavorites) RemoveFavorite(_ context.Context, _, petID int64) error {
	return f.write("remove", petID, false)
}

func (f *fakeFavorites) write(op string, petID int64, fav bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	release, entered := f.release, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.server[petID] = fav
	return nil
}

func (f *fakeFavorites) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeDirectory struct {
	mu        sync.Mutex
	pets      map[int64]*domain.Pet
	calls     int
	statusErr error
}

func newFakeDirectory(pets ...*domain.Pet) *fakeDirectory {
	d := &fakeDirectory{pets: map[int64]*domain.Pet{}}
	for _, p := range pets {
		d.pets[p.ID] = p.Clone()
	}
	return d
}

func (d *fakeDirectory) GetPet(_ context.Context, id int64) (*domain.Pet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	p, ok := d.pets[id]
	if !ok {
		return nil, remoteerr.Classify("get pet", 404, "Pet não encontrado")
	}
	return p.Clone(), nil
}

func (d *fakeDirectory) ListPets(_ context.Context, q ports.PetQuery) ([]*domain.Pet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	var out []*domain.Pet
	for _, p := range d.pets {
		if q.OwnerID != 0 && p.OwnerID != q.OwnerID {
			continue
		}
		if len(q.Statuses) > 0 {
			match := false
			for _, s := range q.Statuses {
				match = match || p.Status == s
			}
			if !match {
				continue
			}
		}
		out = append(out, p.Clone())
	}
	return out, nil
}

func (d *fakeDirectory) UpdateStatus(_ context.Context, id int64, status domain.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.statusErr != nil {
		return d.statusErr
	}
	p, ok := d.pets[id]
	if !ok {
		return remoteerr.Classify("update status", 404, "Pet não encontrado")
	}
	return p.UpdateStatus(status, time.Now())
}

func (d *fakeDirectory) status(id int64) domain.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pets[id].Status
}

// fakeAdoptions mimics the backend's my-pets endpoint and its free-text errors.
type fakeAdoptions struct {
	mu       sync.Mutex
	active   map[adoptKey]bool
	released map[adoptKey]bool
	requests []ports.AssociationRequest
	err      error
	release  chan struct{}
	entered  chan struct{}
}

func newFakeAdoptions() *fakeAdoptions {
	return &fakeAdoptions{active: map[adoptKey]bool{}, released: map[adoptKey]bool{}}
}

func (a *fakeAdoptions) CreateAssociation(_ context.Context, req ports.AssociationRequest) (*domain.Association, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	release, entered := a.release, a.entered
	a.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	key := adoptKey{petID: req.PetID, userID: req.UserID}
	if a.active[key] {
		return nil, remoteerr.Classify("create association", 400, "Este pet já existe em seus pets")
	}
	if a.released[key] && !req.Force {
		return nil, remoteerr.Classify("create association", 400, "Este pet já foi seu anteriormente")
	}
	a.active[key] = true
	return &domain.Association{ID: int64(len(a.active)), PetID: req.PetID, UserID: req.UserID}, nil
}

func (a *fakeAdoptions) requestCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func (a *fakeAdoptions) activeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.active)
}

type directoryFinalizer struct {
	dir   *fakeDirectory
	order *[]string
}

func (f directoryFinalizer) MarkAdopted(ctx context.Context, petID int64) error {
	if f.order != nil {
		*f.order = append(*f.order, "status")
	}
	return f.dir.UpdateStatus(ctx, petID, domain.StatusAdopted)
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

// fakeTerms reports the adoption terms emailed per (pet, adopter).
type fakeTerms struct {
	mu      sync.Mutex
	emailed map[adoptKey]bool
	err     error
	checks  int
}

func (t *fakeTerms) AdoptionTermEmailed(_ context.Context, petID, adopterID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checks++
	if t.err != nil {
		return false, t.err
	}
	return t.emailed[adoptKey{petID: petID, userID: adopterID}], nil
}

func (t *fakeTerms) markEmailed(petID, adopterID int64) {
	t.mu.Lock()
	t.emailed[adoptKey{petID: petID, userID: adopterID}] = true
	t.mu.Unlock()
}
