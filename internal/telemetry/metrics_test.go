package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithView(cycleDurationView()))
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp.Meter(MeterName()))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCheck(ctx, "walmart", "in_stock")
	m.RecordCheck(ctx, "walmart", "failure")
	m.RecordCheck(ctx, "target", "in_stock")
	m.RecordRestock(ctx, "walmart")
	m.RecordNotification(ctx, "sent")
	m.RecordCycle(ctx, 1500*time.Millisecond)

	got := collect(t, reader)
	require.Equal(t, int64(2), sumFor(t, got["pokerestock_checks_total"], "outcome", "in_stock"))
	require.Equal(t, int64(2), sumFor(t, got["pokerestock_checks_total"], "retailer", "walmart"))
	require.Equal(t, int64(1), sumFor(t, got["pokerestock_restocks_total"], "retailer", "walmart"))
	require.Equal(t, int64(1), sumFor(t, got["pokerestock_notifications_total"], "result", "sent"))

	hist, ok := got[cycleDurationName].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	require.Equal(t, uint64(1), hist.DataPoints[0].Count)
	require.Equal(t, 1500.0, hist.DataPoints[0].Sum)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordCheck(context.Background(), "walmart", "absent")
	m.RecordCycle(context.Background(), time.Second)
}

func TestConfigFromEnv(t *testing.T) {
	cfg := ConfigFromEnv(func(string) string { return "" })
	require.False(t, cfg.Enabled)
	require.Equal(t, "pokerestock", cfg.ServiceName)

	env := map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4318"}
	cfg = ConfigFromEnv(func(k string) string { return env[k] })
	require.True(t, cfg.Enabled)
	require.Equal(t, "collector:4318", stripScheme(cfg.OTLPEndpoint))

	env["OTEL_ENABLED"] = "false"
	require.False(t, ConfigFromEnv(func(k string) string { return env[k] }).Enabled)
}

func TestDisabledProviderUsesGlobalMeter(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Meter(MeterName()))
	require.NoError(t, p.Shutdown(context.Background()))
}
