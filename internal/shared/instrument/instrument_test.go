package instrument

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var errExpected = errors.New("expected")

func TestFailLogsUnlessQuiet(t *testing.T) {
	var buf bytes.Buffer
	s := NewScope("test")
	s.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	s.SetTracer(nil)
	s.Quiet(func(err error) bool { return errors.Is(err, errExpected) })

	ctx, span := s.Start(context.Background(), "op")
	defer span.End()

	boom := errors.New("boom")
	require.ErrorIs(t, s.Fail(ctx, span, boom, "op failed"), boom)
	require.Contains(t, buf.String(), "op failed")
	require.Contains(t, buf.String(), "error=boom")

	buf.Reset()
	require.ErrorIs(t, s.Fail(ctx, span, errExpected, "op failed"), errExpected)
	require.Empty(t, buf.String())
	require.NoError(t, s.Fail(ctx, span, nil, "op failed"))
}

func TestCounterAndAdd(t *testing.T) {
	ctx := context.Background()
	Add(ctx, Counter(nil, "x", "y"))

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	c := Counter(meter, "calls", "calls made")
	Add(ctx, c, attribute.String("outcome", "ok"))
	Add(ctx, c, attribute.String("outcome", "ok"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sum := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.EqualValues(t, 2, sum.DataPoints[0].Value)
}
