package adoption

import (
	"context"
	"net/http"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/users/ports"
)

// Profile fetches the live personal data of userID.
func (c *Client) Profile(ctx context.Context, userID int64) (domain.Profile, error) {
	route, err := path("/v1/users/{userId}/profile", "userId", userID)
	if err != nil {
		return domain.Profile{}, err
	}
	var out contract.Profile
	if err := c.do(ctx, call{op: "fetch profile", method: http.MethodGet, path: route, out: &out, retry: true}); err != nil {
		return domain.Profile{}, err
	}
	return toDomainProfile(out), nil
}

// UpdateProfile replaces the personal data of profile.UserID.
func (c *Client) UpdateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	route, err := path("/v1/users/{userId}/profile", "userId", profile.UserID)
	if err != nil {
		return domain.Profile{}, err
	}
	body := contract.Profile{
		UserID: profile.UserID, Name: profile.Name, Email: profile.Email,
		Phone: profile.Phone, City: profile.City, State: profile.State,
	}
	var out contract.Profile
	if err := c.do(ctx, call{op: "update profile", method: http.MethodPut, path: route, body: body, out: &out, retry: true}); err != nil {
		return domain.Profile{}, err
	}
	return toDomainProfile(out), nil
}

func toDomainProfile(p contract.Profile) domain.Profile {
	return domain.Profile{UserID: p.UserID, Name: p.Name, Email: p.Email, Phone: p.Phone, City: p.City, State: p.State}
}

var _ ports.Remote = (*Client)(nil)
