package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/ports"
	"github.com/Apurer/pet-adoption-engine/internal/shared/instrument"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

const tracerName = "github.com/Apurer/pet-adoption-engine/internal/domains/terms/adapters/observability/gateway"

var _ ports.Gateway = (*Gateway)(nil)

// Gateway decorates the remote term API.
type Gateway struct {
	inner ports.Gateway
	scope *instrument.Scope

	saves  metric.Int64Counter
	emails metric.Int64Counter
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.scope.SetLogger(logger) }
}

func WithTracer(tr trace.Tracer) Option {
	return func(g *Gateway) { g.scope.SetTracer(tr) }
}

// WithMeter enables terms.saves and terms.emails, labelled by term kind and result.
func WithMeter(m metric.Meter) Option {
	return func(g *Gateway) {
		g.saves = instrument.Counter(m, "terms.saves", "Term create/update calls by result")
		g.emails = instrument.Counter(m, "terms.emails", "Term email calls by delivery result")
	}
}

func New(inner ports.Gateway, opts ...Option) ports.Gateway {
	g := &Gateway{inner: inner, scope: instrument.NewScope(tracerName)}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Gateway) Save(ctx context.Context, req ports.SaveRequest) (*domain.Term, error) {
	key := req.Key.String()
	ctx, span := g.scope.Start(ctx, "TermGateway.Save",
		attribute.String("term.key", key), attribute.Bool("term.update", req.Update))
	defer span.End()

	term, err := g.inner.Save(ctx, req)
	if err != nil {
		kind := remoteerr.KindOf(err).String()
		g.count(ctx, g.saves, req.Key.Kind, kind)
		return nil, g.scope.Fail(ctx, span, err, "term save failed", slog.String("term.key", key), slog.String("error.kind", kind))
	}
	g.count(ctx, g.saves, req.Key.Kind, "ok")
	span.SetAttributes(attribute.Int64("term.id", term.ID))
	g.scope.Info(ctx, "term saved", slog.String("term.key", key), slog.Int64("term.id", term.ID), slog.Bool("term.update", req.Update))
	return term, nil
}

// Fetch treats a missing term as an answer, not a failure.
func (g *Gateway) Fetch(ctx context.Context, key domain.Key) (*domain.Term, error) {
	ctx, span := g.scope.Start(ctx, "TermGateway.Fetch", attribute.String("term.key", key.String()))
	defer span.End()

	term, err := g.inner.Fetch(ctx, key)
	switch {
	case remoteerr.KindOf(err) == remoteerr.KindNotFound:
		span.SetAttributes(attribute.Bool("term.found", false))
		return nil, err
	case err != nil:
		return nil, g.scope.Fail(ctx, span, err, "term fetch failed",
			slog.String("term.key", key.String()), slog.String("error.kind", remoteerr.KindOf(err).String()))
	}
	span.SetAttributes(attribute.Bool("term.found", true), attribute.Bool("term.emailed", term.Emailed()))
	return term, nil
}

func (g *Gateway) SendEmail(ctx context.Context, kind domain.Kind, termID int64) (domain.Delivery, error) {
	ctx, span := g.scope.Start(ctx, "TermGateway.SendEmail",
		attribute.String("term.kind", string(kind)), attribute.Int64("term.id", termID))
	defer span.End()

	delivery, err := g.inner.SendEmail(ctx, kind, termID)
	if err != nil {
		g.count(ctx, g.emails, kind, "error")
		return delivery, g.scope.Fail(ctx, span, err, "term email failed",
			slog.Int64("term.id", termID), slog.String("error.kind", remoteerr.KindOf(err).String()))
	}
	if !delivery.Complete() {
		failed := delivery.Failed()
		g.count(ctx, g.emails, kind, "partial")
		span.SetAttributes(attribute.Int("term.email.failed", len(failed)))
		for _, r := range failed {
			g.scope.Warn(ctx, "term email not delivered",
				slog.Int64("term.id", termID), slog.String("recipient.role", r.Role), slog.String("error", r.Error))
		}
		return delivery, nil
	}
	g.count(ctx, g.emails, kind, "delivered")
	return delivery, nil
}

func (g *Gateway) count(ctx context.Context, c metric.Int64Counter, kind domain.Kind, result string) {
	instrument.Add(ctx, c, attribute.String("term.kind", string(kind)), attribute.String("result", result))
}
