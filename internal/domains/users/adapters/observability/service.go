package observability

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	userdomain "github.com/Apurer/pet-adoption-engine/internal/domains/users/domain"
	userports "github.com/Apurer/pet-adoption-engine/internal/domains/users/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/instrument"
)

const tracerName = "github.com/Apurer/pet-adoption-engine/internal/domains/users/adapters/observability/service"

var _ userports.Service = (*Service)(nil)

// Service decorates the device session. Token and CurrentUserID run on every
// REST call and pass straight through.
type Service struct {
	inner userports.Service
	scope *instrument.Scope

	signIns        metric.Int64Counter
	signOuts       metric.Int64Counter
	profileUpdates metric.Int64Counter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.scope.SetLogger(logger) }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.scope.SetTracer(tr) }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.signIns = instrument.Counter(m, "users.session.sign_ins", "Number of sign-ins on the device")
		s.signOuts = instrument.Counter(m, "users.session.sign_outs", "Number of sign-outs on the device")
		s.profileUpdates = instrument.Counter(m, "users.profile.updates", "Number of profile updates")
	}
}

func New(inner userports.Service, opts ...Option) userports.Service {
	s := &Service{inner: inner, scope: instrument.NewScope(tracerName)}
	// Signed-out is a state the UI handles, not a failure.
	s.scope.Quiet(func(err error) bool { return errors.Is(err, userports.ErrSignedOut) })
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) SignIn(ctx context.Context, userID int64, token string) error {
	ctx, span := s.scope.Start(ctx, "SessionService.SignIn", attribute.Int64("user.id", userID))
	defer span.End()
	if err := s.inner.SignIn(ctx, userID, token); err != nil {
		return s.scope.Fail(ctx, span, err, "sign in failed", slog.Int64("user.id", userID))
	}
	instrument.Add(ctx, s.signIns)
	s.scope.Info(ctx, "signed in", slog.Int64("user.id", userID))
	return nil
}

func (s *Service) SignOut(ctx context.Context) error {
	ctx, span := s.scope.Start(ctx, "SessionService.SignOut")
	defer span.End()
	if err := s.inner.SignOut(ctx); err != nil {
		return s.scope.Fail(ctx, span, err, "sign out failed")
	}
	instrument.Add(ctx, s.signOuts)
	s.scope.Info(ctx, "signed out")
	return nil
}

func (s *Service) CurrentUserID(ctx context.Context) (int64, error) {
	return s.inner.CurrentUserID(ctx)
}

func (s *Service) Token(ctx context.Context) (string, error) {
	return s.inner.Token(ctx)
}

func (s *Service) Profile(ctx context.Context, userID int64) (userdomain.Profile, error) {
	ctx, span := s.scope.Start(ctx, "SessionService.Profile", attribute.Int64("user.id", userID))
	defer span.End()
	profile, err := s.inner.Profile(ctx, userID)
	if err != nil {
		return userdomain.Profile{}, s.scope.Fail(ctx, span, err, "failed to load profile", slog.Int64("user.id", userID))
	}
	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, profile userdomain.Profile) (userdomain.Profile, error) {
	ctx, span := s.scope.Start(ctx, "SessionService.UpdateProfile", attribute.Int64("user.id", profile.UserID))
	defer span.End()
	updated, err := s.inner.UpdateProfile(ctx, profile)
	if err != nil {
		return userdomain.Profile{}, s.scope.Fail(ctx, span, err, "failed to update profile", slog.Int64("user.id", profile.UserID))
	}
	instrument.Add(ctx, s.profileUpdates)
	s.scope.Info(ctx, "profile updated", slog.Int64("user.id", updated.UserID))
	return updated, nil
}
