package adoption

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/ports"
)

var _ ports.Gateway = (*Client)(nil)

// Save creates or updates a term. It is not retried: a create that reached the
// backend comes back as "already exists" and the controller re-fetches.
func (c *Client) Save(ctx context.Context, req ports.SaveRequest) (*domain.Term, error) {
	if err := req.Key.Validate(); err != nil {
		return nil, err
	}
	var (
		route string
		body  any
	)
	switch req.Key.Kind {
	case domain.KindAdoption:
		route = "/v1/adoption-terms"
		body = contract.SaveAdoptionTerm{
			PetID: req.Key.PetID, AdopterID: req.Key.AdopterID, Update: req.Update,
			Signature: req.Signature, Observations: req.Observations,
		}
	default:
		route = "/v1/donation-terms"
		body = contract.SaveDonationTerm{
			DonorID: req.Key.DonorID, Update: req.Update,
			Signature: req.Signature, Observations: req.Observations,
		}
	}
	var out contract.Term
	if err := c.do(ctx, call{op: "save term", method: http.MethodPut, path: route, body: body, out: &out}); err != nil {
		return nil, err
	}
	return toDomainTerm(out), nil
}

// Fetch loads the term of key; absence is a NotFound error.
func (c *Client) Fetch(ctx context.Context, key domain.Key) (*domain.Term, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	route := "/v1/adoption-terms"
	var err error
	if key.Kind == domain.KindAdoption {
		if err = addQuery(q, "petId", key.PetID); err == nil {
			err = addQuery(q, "adopterId", key.AdopterID)
		}
	} else {
		route = "/v1/donation-terms"
		err = addQuery(q, "donorId", key.DonorID)
	}
	if err != nil {
		return nil, err
	}
	var out contract.Term
	if err := c.do(ctx, call{op: "fetch term", method: http.MethodGet, path: route, query: q, out: &out, retry: true}); err != nil {
		return nil, err
	}
	return toDomainTerm(out), nil
}

// SendEmail asks the backend to email the term to both parties. A partial
// delivery is a successful call whose Delivery is not Complete.
func (c *Client) SendEmail(ctx context.Context, kind domain.Kind, termID int64) (domain.Delivery, error) {
	template := "/v1/adoption-terms/{termId}/email"
	if kind == domain.KindDonation {
		template = "/v1/donation-terms/{termId}/email"
	} else if kind != domain.KindAdoption {
		return domain.Delivery{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidKey, kind)
	}
	p, err := path(template, "termId", termID)
	if err != nil {
		return domain.Delivery{}, err
	}
	var out contract.Delivery
	if err := c.do(ctx, call{op: "email term", method: http.MethodPost, path: p, out: &out}); err != nil {
		return domain.Delivery{}, err
	}
	delivery := domain.Delivery{Recipients: make([]domain.RecipientStatus, 0, len(out.Recipients))}
	for _, r := range out.Recipients {
		delivery.Recipients = append(delivery.Recipients, domain.RecipientStatus{
			Role: r.Role, Email: r.Email, Delivered: r.Delivered, Error: r.Error,
		})
	}
	return delivery, nil
}

func toDomainTerm(t contract.Term) *domain.Term {
	term := &domain.Term{
		ID:           t.ID,
		Kind:         domain.Kind(t.Kind),
		PetID:        t.PetID,
		Donor:        toDomainParty(t.Donor),
		Signature:    t.Signature,
		Observations: t.Observations,
		Hash:         t.Hash,
		CreatedAt:    t.CreatedAt,
		EmailSentAt:  t.EmailSentAt,
	}
	if t.Adopter != nil {
		adopter := toDomainParty(*t.Adopter)
		term.Adopter = &adopter
	}
	return term
}

func toDomainParty(p contract.Party) domain.Party {
	return domain.Party{UserID: p.UserID, Name: p.Name, Email: p.Email, Phone: p.Phone, City: p.City, State: p.State}
}
