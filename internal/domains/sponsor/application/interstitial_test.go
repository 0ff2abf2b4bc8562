package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Apurer/pet-adoption-engine/internal/domains/sponsor/ports"
)

func newMeteredInterstitial(t *testing.T, p ports.Presenter, opts ...Option) (*Interstitial, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	opts = append(opts, WithMeter(provider.Meter("sponsor-test")))
	return NewInterstitial(p, opts...), reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func presentWithin(t *testing.T, gate ports.Gate, ctx context.Context, limit time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		gate.Present(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
		t.Fatal("interstitial blocked the caller")
	}
}

func TestInterstitial_WaitsForDismissal(t *testing.T) {
	dismissed := make(chan struct{})
	shown := make(chan struct{})
	gate, reader := newMeteredInterstitial(t, ports.PresenterFunc(func(ctx context.Context) error {
		close(shown)
		<-dismissed
		return nil
	}))

	returned := make(chan struct{})
	go func() {
		gate.Present(context.Background())
		close(returned)
	}()
	<-shown
	select {
	case <-returned:
		t.Fatal("returned before dismissal")
	default:
	}
	close(dismissed)
	<-returned
	require.Equal(t, int64(1), counterTotal(t, reader, "sponsor.impressions"))
}

func TestInterstitial_ResolvesImmediatelyWhenItCannotShow(t *testing.T) {
	cases := map[string]ports.Presenter{
		"nil presenter":   nil,
		"cannot render":   ports.PresenterFunc(func(context.Context) error { return ports.ErrCannotRender }),
		"presenter error": ports.PresenterFunc(func(context.Context) error { return errors.New("ad sdk crashed") }),
	}
	for name, presenter := range cases {
		t.Run(name, func(t *testing.T) {
			gate, reader := newMeteredInterstitial(t, presenter)
			presentWithin(t, gate, context.Background(), time.Second)
			require.Equal(t, int64(1), counterTotal(t, reader, "sponsor.render_failures"))
			require.Zero(t, counterTotal(t, reader, "sponsor.impressions"))
		})
	}
}

func TestInterstitial_MaxWait(t *testing.T) {
	stuck := ports.PresenterFunc(func(context.Context) error {
		select {}
	})
	gate, reader := newMeteredInterstitial(t, stuck, WithMaxWait(20*time.Millisecond))
	presentWithin(t, gate, context.Background(), time.Second)
	require.Equal(t, int64(1), counterTotal(t, reader, "sponsor.render_failures"))
}

func TestInterstitial_CallerCancellation(t *testing.T) {
	blocking := ports.PresenterFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	gate, _ := newMeteredInterstitial(t, blocking)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	presentWithin(t, gate, ctx, time.Second)
}

func TestNoopGate(t *testing.T) {
	presentWithin(t, NoopGate{}, context.Background(), time.Second)
}
