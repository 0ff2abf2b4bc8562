package ports

import (
	"context"

	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
)

// Remote is the backend profile API.
type Remote interface {
	Profile(ctx context.Context, userID int64) (domain.Profile, error)
	UpdateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error)
}
