package ports

import (
	"context"
	"errors"

	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
)

// ErrSignedOut is returned when no user is signed in on the device.
var ErrSignedOut = errors.New("no user signed in")

// SessionStore persists the device session and the cached profile.
type SessionStore interface {
	Load(ctx context.Context) (domain.Session, bool, error)
	Save(ctx context.Context, session domain.Session) error
	Clear(ctx context.Context) error
	CachedProfile(ctx context.Context) (domain.Profile, bool, error)
	CacheProfile(ctx context.Context, profile domain.Profile) error
}
