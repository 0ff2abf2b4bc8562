// Package observability decorates the adoption orchestrator with spans,
// structured logs and outcome counters.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pettypes "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application/types"
	"github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/instrument"
)

const tracerName = "github.com/Apurer/pet-adoption-engine/internal/domains/pets/adapters/observability/service"

var _ ports.AdoptionService = (*Service)(nil)

// Service decorates the adoption port.
type Service struct {
	inner ports.AdoptionService
	scope *instrument.Scope

	requests      metric.Int64Counter
	completed     metric.Int64Counter
	statusFailure metric.Int64Counter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.scope.SetLogger(logger) }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.scope.SetTracer(tr) }
}

// WithMeter enables the adoption.* counters.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.requests = instrument.Counter(m, "adoption.requests", "Adoption requests by outcome")
		s.completed = instrument.Counter(m, "adoption.completed", "Adoptions that reached the hand-off")
		s.statusFailure = instrument.Counter(m, "adoption.status_write.failed", "Adopted status writes that failed")
	}
}

// New wires a decorator around the adoption orchestrator.
func New(inner ports.AdoptionService, opts ...Option) ports.AdoptionService {
	s := &Service{inner: inner, scope: instrument.NewScope(tracerName)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) RequestAdopt(ctx context.Context, petID, userID int64) (pettypes.AdoptResult, error) {
	return s.request(ctx, "RequestAdopt", petID, userID, s.inner.RequestAdopt)
}

func (s *Service) ConfirmReadoption(ctx context.Context, petID, userID int64) (pettypes.AdoptResult, error) {
	return s.request(ctx, "ConfirmReadoption", petID, userID, s.inner.ConfirmReadoption)
}

func (s *Service) request(ctx context.Context, op string, petID, userID int64,
	call func(context.Context, int64, int64) (pettypes.AdoptResult, error),
) (pettypes.AdoptResult, error) {
	ctx, span := s.scope.Start(ctx, "AdoptionService."+op,
		attribute.Int64("pet.id", petID), attribute.Int64("user.id", userID))
	defer span.End()

	result, err := call(ctx, petID, userID)
	if err != nil {
		return result, s.scope.Fail(ctx, span, err, "adoption request failed",
			slog.String("op", op), slog.Int64("pet.id", petID), slog.Int64("user.id", userID))
	}
	outcome := result.Outcome.String()
	span.SetAttributes(attribute.String("adoption.outcome", outcome))
	instrument.Add(ctx, s.requests, attribute.String("adoption.op", op), attribute.String("adoption.outcome", outcome))

	attrs := []slog.Attr{slog.String("op", op), slog.Int64("pet.id", petID), slog.String("outcome", outcome)}
	if result.Message != "" {
		attrs = append(attrs, slog.String("message", result.Message))
	}
	s.scope.Info(ctx, "adoption request resolved", attrs...)
	return result, nil
}

// CompleteAdoption never fails on the status write alone; that failure is
// counted and reported in the Completion.
func (s *Service) CompleteAdoption(ctx context.Context, petID, adopterID int64, handoff func(context.Context) error) (pettypes.Completion, error) {
	ctx, span := s.scope.Start(ctx, "AdoptionService.CompleteAdoption",
		attribute.Int64("pet.id", petID), attribute.Int64("user.id", adopterID))
	defer span.End()

	done, err := s.inner.CompleteAdoption(ctx, petID, adopterID, handoff)
	if err != nil {
		return done, s.scope.Fail(ctx, span, err, "adoption completion failed",
			slog.Int64("pet.id", petID), slog.Int64("user.id", adopterID))
	}
	if done.StatusErr != nil {
		span.RecordError(done.StatusErr)
		span.SetAttributes(attribute.Bool("pet.status_write.failed", true))
		instrument.Add(ctx, s.statusFailure)
		s.scope.Warn(ctx, "adopted status not written", slog.Int64("pet.id", petID), slog.String("error", done.StatusErr.Error()))
	}
	if done.HandoffErr != nil {
		span.RecordError(done.HandoffErr)
	}
	instrument.Add(ctx, s.completed, attribute.Bool("pet.status_written", done.StatusErr == nil))
	s.scope.Info(ctx, "adoption completed", slog.Int64("pet.id", petID))
	return done, nil
}
