package adoption

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
)

var (
	_ ports.Directory     = (*Client)(nil)
	_ ports.Favorites     = (*Client)(nil)
	_ ports.Adoptions     = (*Client)(nil)
	_ ports.ReferenceData = (*Client)(nil)
)

// GetPet fetches one pet.
func (c *Client) GetPet(ctx context.Context, id int64) (*domain.Pet, error) {
	p, err := path("/v1/pets/{petId}", "petId", id)
	if err != nil {
		return nil, err
	}
	var out contract.Pet
	if err := c.do(ctx, call{op: "fetch pet", method: http.MethodGet, path: p, out: &out, retry: true}); err != nil {
		return nil, err
	}
	return toDomainPet(out), nil
}

// ListPets fetches pets by status and owner.
func (c *Client) ListPets(ctx context.Context, query ports.PetQuery) ([]*domain.Pet, error) {
	q := url.Values{}
	if len(query.Statuses) > 0 {
		codes := make([]int, 0, len(query.Statuses))
		for _, s := range query.Statuses {
			codes = append(codes, int(s))
		}
		if err := addQuery(q, "status", codes); err != nil {
			return nil, err
		}
	}
	if query.OwnerID != 0 {
		if err := addQuery(q, "ownerId", query.OwnerID); err != nil {
			return nil, err
		}
	}
	var out []contract.Pet
	if err := c.do(ctx, call{op: "list pets", method: http.MethodGet, path: "/v1/pets", query: q, out: &out, retry: true}); err != nil {
		return nil, err
	}
	pets := make([]*domain.Pet, 0, len(out))
	for _, p := range out {
		pets = append(pets, toDomainPet(p))
	}
	return pets, nil
}

// UpdateStatus writes a new status. Setting the same status twice is harmless,
// so the call is retried.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	p, err := path("/v1/pets/{petId}/status", "petId", id)
	if err != nil {
		return err
	}
	return c.do(ctx, call{
		op: "update pet status", method: http.MethodPatch, path: p,
		body: contract.StatusUpdate{Status: int(status)}, retry: true,
	})
}

// Lookup resolves a reference item, caching hits for the life of the client.
func (c *Client) Lookup(ctx context.Context, kind domain.ReferenceKind, id int64) (*domain.ReferenceItem, error) {
	key := refKey{kind: kind, id: id}
	c.refMu.RLock()
	item, ok := c.refs[key]
	c.refMu.RUnlock()
	if ok {
		return &item, nil
	}
	p, err := path("/v1/reference/{kind}/{id}", "kind", string(kind), "id", id)
	if err != nil {
		return nil, err
	}
	var out contract.Reference
	if err := c.do(ctx, call{op: "fetch reference", method: http.MethodGet, path: p, out: &out, retry: true}); err != nil {
		return nil, err
	}
	item = domain.ReferenceItem{Kind: kind, ID: out.ID, Name: out.Name}
	c.refMu.Lock()
	c.refs[key] = item
	c.refMu.Unlock()
	return &item, nil
}

func (c *Client) IsFavorite(ctx context.Context, userID, petID int64) (bool, error) {
	p, err := favoritePath(userID, petID)
	if err != nil {
		return false, err
	}
	var out contract.Favorite
	if err := c.do(ctx, call{op: "check favorite", method: http.MethodGet, path: p, out: &out, retry: true}); err != nil {
		return false, err
	}
	return out.Favorite, nil
}

func (c *Client) AddFavorite(ctx context.Context, userID, petID int64) error {
	p, err := favoritePath(userID, petID)
	if err != nil {
		return err
	}
	return c.do(ctx, call{op: "add favorite", method: http.MethodPut, path: p, retry: true})
}

func (c *Client) RemoveFavorite(ctx context.Context, userID, petID int64) error {
	p, err := favoritePath(userID, petID)
	if err != nil {
		return err
	}
	return c.do(ctx, call{op: "remove favorite", method: http.MethodDelete, path: p, retry: true})
}

func favoritePath(userID, petID int64) (string, error) {
	return path("/v1/users/{userId}/favorites/{petId}", "userId", userID, "petId", petID)
}

// CreateAssociation adds the pet to the user's "my pets". Calls carrying an
// idempotency key are retried; the backend replays the first response.
func (c *Client) CreateAssociation(ctx context.Context, req ports.AssociationRequest) (*domain.Association, error) {
	header := http.Header{}
	if req.IdempotencyKey != "" {
		header.Set(contract.HeaderIdempotencyKey, req.IdempotencyKey)
	}
	var out contract.Association
	err := c.do(ctx, call{
		op: "create association", method: http.MethodPost, path: "/v1/my-pets", header: header,
		body:  contract.AssociationRequest{PetID: req.PetID, UserID: req.UserID, Force: req.Force},
		out:   &out,
		retry: req.IdempotencyKey != "",
	})
	if err != nil {
		return nil, err
	}
	return &domain.Association{ID: out.ID, PetID: out.PetID, UserID: out.UserID, CreatedAt: out.CreatedAt, ReleasedAt: out.ReleasedAt}, nil
}

func toDomainPet(p contract.Pet) *domain.Pet {
	pet := &domain.Pet{
		ID:       p.ID,
		OwnerID:  p.OwnerID,
		Name:     p.Name,
		BreedID:  p.BreedID,
		Breed:    p.Breed,
		AgeBand:  p.AgeBand,
		PhotoURL: p.PhotoURL,
		Status:   domain.Status(p.Status),
	}
	if len(p.Diseases) > 0 {
		pet.Diseases = append([]string{}, p.Diseases...)
	}
	return pet
}
