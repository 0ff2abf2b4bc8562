// Package device keeps the session in the device store.
package device

import (
	"context"
	"strconv"

	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/users/ports"
	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
)

// SessionStore persists the session under the well-known session keys.
type SessionStore struct {
	store devicestore.Store
}

func NewSessionStore(store devicestore.Store) *SessionStore {
	return &SessionStore{store: store}
}

// Load returns the session when both the user id and the token are present.
func (s *SessionStore) Load(ctx context.Context) (domain.Session, bool, error) {
	rawID, ok, err := s.store.Get(ctx, devicestore.KeyLastUserID)
	if err != nil || !ok {
		return domain.Session{}, false, err
	}
	token, ok, err := s.store.Get(ctx, devicestore.KeyAuthToken)
	if err != nil || !ok {
		return domain.Session{}, false, err
	}
	userID, err := strconv.ParseInt(string(rawID), 10, 64)
	if err != nil {
		return domain.Session{}, false, nil
	}
	return domain.Session{UserID: userID, Token: string(token)}, true, nil
}

func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	if err := s.store.Set(ctx, devicestore.KeyLastUserID, []byte(strconv.FormatInt(session.UserID, 10))); err != nil {
		return err
	}
	return s.store.Set(ctx, devicestore.KeyAuthToken, []byte(session.Token))
}

// Clear removes the token, the user id and the cached profile.
func (s *SessionStore) Clear(ctx context.Context) error {
	for _, key := range []string{devicestore.KeyAuthToken, devicestore.KeyLastUserID, devicestore.KeyProfile} {
		if err := s.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *SessionStore) CachedProfile(ctx context.Context) (domain.Profile, bool, error) {
	return devicestore.GetJSON[domain.Profile](ctx, s.store, devicestore.KeyProfile)
}

func (s *SessionStore) CacheProfile(ctx context.Context, profile domain.Profile) error {
	return devicestore.SetJSON(ctx, s.store, devicestore.KeyProfile, profile)
}

var _ ports.SessionStore = (*SessionStore)(nil)
