package application

import (
	"context"
	"io"
	"log/slog"

	"github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/users/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

// Service is the device session: who is signed in, their token, and their
// last known profile.
type Service struct {
	sessions ports.SessionStore
	remote   ports.Remote
	logger   *slog.Logger
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(sessions ports.SessionStore, remote ports.Remote, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		remote:   remote,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SignIn stores the session. Signing in as a different user drops the cached profile.
func (s *Service) SignIn(ctx context.Context, userID int64, token string) error {
	session := domain.Session{UserID: userID, Token: token}
	if err := session.Validate(); err != nil {
		return mapError(err)
	}
	previous, ok, err := s.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if ok && previous.UserID != userID {
		if err := s.sessions.Clear(ctx); err != nil {
			return err
		}
	}
	return s.sessions.Save(ctx, session)
}

// SignOut forgets the session and the cached profile.
func (s *Service) SignOut(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// CurrentUserID returns the signed-in user or ports.ErrSignedOut.
func (s *Service) CurrentUserID(ctx context.Context) (int64, error) {
	session, err := s.current(ctx)
	if err != nil {
		return 0, err
	}
	return session.UserID, nil
}

// Token returns the bearer token of the session.
func (s *Service) Token(ctx context.Context) (string, error) {
	session, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

// Profile reads the live profile of userID. When the backend is unreachable
// the signed-in user's cached profile is returned instead.
func (s *Service) Profile(ctx context.Context, userID int64) (domain.Profile, error) {
	profile, err := s.remote.Profile(ctx, userID)
	if err == nil {
		if own, _ := s.isCurrent(ctx, userID); own {
			if cacheErr := s.sessions.CacheProfile(ctx, profile); cacheErr != nil {
				s.logger.LogAttrs(ctx, slog.LevelWarn, "profile not cached",
					slog.Int64("user.id", userID), slog.String("error", cacheErr.Error()))
			}
		}
		return profile, nil
	}
	if !remoteerr.KindOf(err).Retryable() {
		return domain.Profile{}, err
	}
	own, _ := s.isCurrent(ctx, userID)
	if !own {
		return domain.Profile{}, err
	}
	cached, ok, cacheErr := s.sessions.CachedProfile(ctx)
	if cacheErr != nil || !ok || cached.UserID != userID {
		return domain.Profile{}, err
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "using cached profile",
		slog.Int64("user.id", userID), slog.String("error", err.Error()))
	return cached, nil
}

// UpdateProfile changes the signed-in user's personal data. Terms signed with
// the previous data become stale.
func (s *Service) UpdateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	userID, err := s.CurrentUserID(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if profile.UserID == 0 {
		profile.UserID = userID
	}
	if profile.UserID != userID {
		return domain.Profile{}, ErrNotOwnProfile
	}
	profile = profile.Normalize()
	if err := profile.Validate(); err != nil {
		return domain.Profile{}, mapError(err)
	}
	updated, err := s.remote.UpdateProfile(ctx, profile)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := s.sessions.CacheProfile(ctx, updated); err != nil {
		return domain.Profile{}, err
	}
	return updated, nil
}

func (s *Service) current(ctx context.Context) (domain.Session, error) {
	session, ok, err := s.sessions.Load(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, ports.ErrSignedOut
	}
	return session, nil
}

func (s *Service) isCurrent(ctx context.Context, userID int64) (bool, error) {
	current, err := s.CurrentUserID(ctx)
	if err != nil {
		return false, err
	}
	return current == userID, nil
}

var _ ports.Service = (*Service)(nil)
