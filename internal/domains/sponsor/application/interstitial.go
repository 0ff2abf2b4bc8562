// Package application runs the sponsor interstitial shown after selected
// adoption transitions.
package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Apurer/pet-adoption-engine/internal/domains/sponsor/ports"
)

// DefaultMaxWait caps how long a presenter may hold the caller.
const DefaultMaxWait = 30 * time.Second

// Interstitial presents the sponsor checkpoint through a Presenter.
type Interstitial struct {
	presenter ports.Presenter
	maxWait   time.Duration
	logger    *slog.Logger

	impressions metric.Int64Counter
	failures    metric.Int64Counter
}

type Option func(*Interstitial)

// WithMaxWait bounds a single presentation.
func WithMaxWait(d time.Duration) Option {
	return func(i *Interstitial) {
		if d > 0 {
			i.maxWait = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(i *Interstitial) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMeter records impressions and render failures.
func WithMeter(m metric.Meter) Option {
	return func(i *Interstitial) {
		if m == nil {
			return
		}
		i.impressions, _ = m.Int64Counter("sponsor.impressions", metric.WithDescription("Sponsor interstitials dismissed by the user"))
		i.failures, _ = m.Int64Counter("sponsor.render_failures", metric.WithDescription("Sponsor interstitials skipped"))
	}
}

// NewInterstitial wraps presenter. A nil presenter makes every Present a no-op.
func NewInterstitial(presenter ports.Presenter, opts ...Option) *Interstitial {
	i := &Interstitial{
		presenter: presenter,
		maxWait:   DefaultMaxWait,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Present shows the interstitial and returns when it is dismissed, cannot be
// shown, or the wait is over. Failures are recorded and never returned.
func (i *Interstitial) Present(ctx context.Context) {
	if i.presenter == nil {
		i.skipped(ctx, "no_presenter", nil)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, i.maxWait)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- i.presenter.Show(ctx)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			if i.impressions != nil {
				i.impressions.Add(ctx, 1)
			}
		case errors.Is(err, ports.ErrCannotRender):
			i.skipped(ctx, "cannot_render", err)
		default:
			i.skipped(ctx, "presenter_error", err)
		}
	case <-ctx.Done():
		reason := "canceled"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "max_wait"
		}
		i.skipped(ctx, reason, ctx.Err())
	}
}

func (i *Interstitial) skipped(ctx context.Context, reason string, err error) {
	if i.failures != nil {
		i.failures.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("sponsor.skip_reason", reason)))
	}
	attrs := []slog.Attr{slog.String("sponsor.skip_reason", reason)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	i.logger.LogAttrs(ctx, slog.LevelDebug, "sponsor interstitial skipped", attrs...)
}

// NoopGate satisfies the gate for headless callers.
type NoopGate struct{}

func (NoopGate) Present(context.Context) {}

var (
	_ ports.Gate = (*Interstitial)(nil)
	_ ports.Gate = NoopGate{}
)
