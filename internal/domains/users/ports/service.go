package ports

import (
	"context"

	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
)

// Service exposes the device session use cases to adapters.
type Service interface {
	SignIn(ctx context.Context, userID int64, token string) error
	SignOut(ctx context.Context) error
	CurrentUserID(ctx context.Context) (int64, error)
	Token(ctx context.Context) (string, error)
	Profile(ctx context.Context, userID int64) (domain.Profile, error)
	UpdateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error)
}
