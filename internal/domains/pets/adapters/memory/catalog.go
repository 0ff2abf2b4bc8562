package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
)

var _ ports.Catalog = (*Catalog)(nil)

// Catalog is the in-process local pet catalog.
type Catalog struct {
	mu      sync.RWMutex
	pets    map[int64]*domain.Pet
	onEvent func(domain.Event)
}

type CatalogOption func(*Catalog)

// WithEventSink receives the events of every successful Update, in order,
// after the catalog lock is released.
func WithEventSink(sink func(domain.Event)) CatalogOption {
	return func(c *Catalog) { c.onEvent = sink }
}

// NewCatalog constructs an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{pets: map[int64]*domain.Pet{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a pet if present.
func (c *Catalog) Get(_ context.Context, id int64) (*domain.Pet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pet, ok := c.pets[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return pet.Clone(), nil
}

// Put inserts or replaces a pet.
func (c *Catalog) Put(_ context.Context, pet *domain.Pet) error {
	if pet == nil {
		return errors.New("cannot store nil pet")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pets[pet.ID] = pet.Clone()
	return nil
}

// Update applies fn to a copy and stores it only when fn succeeds.
func (c *Catalog) Update(_ context.Context, id int64, fn func(*domain.Pet) error) (*domain.Pet, error) {
	c.mu.Lock()
	current, ok := c.pets[id]
	if !ok {
		c.mu.Unlock()
		return nil, ports.ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	events := next.Events()
	next.ClearEvents()
	c.pets[id] = next
	out := next.Clone()
	c.mu.Unlock()

	if c.onEvent != nil {
		for _, e := range events {
			c.onEvent(e)
		}
	}
	return out, nil
}

// Merge upserts fetched pets, keeping the local favorite fields of known pets.
func (c *Catalog) Merge(_ context.Context, pets []*domain.Pet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range pets {
		if p == nil {
			continue
		}
		next := p.Clone()
		if existing, ok := c.pets[p.ID]; ok {
			next.RestoreFavorite(existing.FavoriteState())
		}
		c.pets[p.ID] = next
	}
	return nil
}

// List returns all pets ordered by id.
func (c *Catalog) List(_ context.Context) ([]*domain.Pet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]*domain.Pet, 0, len(c.pets))
	for _, p := range c.pets {
		list = append(list, p.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
