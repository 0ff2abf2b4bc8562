package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitWritesJSONLogsAndCollectsMetrics(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	instruments, shutdown, err := Init(ctx, "observability-test",
		WithLogOutput(&buf),
		WithLogLevel(slog.LevelDebug),
		WithSpanExport(false),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, shutdown(context.Background())) })

	instruments.Logger.Debug("ping", slog.Int64("petId", 42))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "ping", line["msg"])
	require.EqualValues(t, 42, line["petId"])

	counter, err := instruments.Meter("test").Int64Counter("checks_total")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, instruments.Metrics.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.EqualValues(t, 3, sum.DataPoints[0].Value)

	_, span := instruments.Tracer("test").Start(ctx, "ping")
	require.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestTextLogsRespectLevel(t *testing.T) {
	var buf bytes.Buffer
	instruments, shutdown, err := Init(context.Background(), "observability-test",
		WithLogOutput(&buf),
		WithLogLevel(slog.LevelWarn),
		WithTextLogs(),
		WithSpanExport(false),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, shutdown(context.Background())) })

	instruments.Logger.Info("hidden")
	instruments.Logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "msg=shown")
}

func TestNilInstrumentsFallBack(t *testing.T) {
	var i *Instruments
	require.NotNil(t, i.Tracer("x"))
	require.NotNil(t, i.Meter("x"))
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	require.Equal(t, slog.LevelDebug, levelFromEnv())
	t.Setenv("LOG_LEVEL", "loud")
	require.Equal(t, slog.LevelInfo, levelFromEnv())
}
