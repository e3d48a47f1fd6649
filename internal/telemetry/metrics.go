package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName         = "github.com/yourneighborhoodchef/pokerestock/monitor"
	cycleDurationName = "pokerestock_cycle_duration"
)

// Metrics holds the monitor instruments. A nil *Metrics records nothing.
type Metrics struct {
	checks        metric.Int64Counter
	restocks      metric.Int64Counter
	notifications metric.Int64Counter
	cycleDuration metric.Float64Histogram
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	checks, err := meter.Int64Counter("pokerestock_checks_total",
		metric.WithDescription("Stock checks by retailer and outcome"),
		metric.WithUnit("{check}"))
	if err != nil {
		return nil, err
	}
	restocks, err := meter.Int64Counter("pokerestock_restocks_total",
		metric.WithDescription("Detected restocks by retailer"),
		metric.WithUnit("{restock}"))
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("pokerestock_notifications_total",
		metric.WithDescription("Restock alerts by delivery result"),
		metric.WithUnit("{notification}"))
	if err != nil {
		return nil, err
	}
	cycleDuration, err := meter.Float64Histogram(cycleDurationName,
		metric.WithDescription("Wall time of one check cycle"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		checks:        checks,
		restocks:      restocks,
		notifications: notifications,
		cycleDuration: cycleDuration,
	}, nil
}

// MeterName is the instrumentation scope used by NewMetrics callers.
func MeterName() string { return meterName }

// RecordCheck counts one check. outcome is in_stock, out_of_stock, failure or absent.
func (m *Metrics) RecordCheck(ctx context.Context, retailer, outcome string) {
	if m == nil {
		return
	}
	m.checks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("retailer", retailer),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordRestock(ctx context.Context, retailer string) {
	if m == nil {
		return
	}
	m.restocks.Add(ctx, 1, metric.WithAttributes(attribute.String("retailer", retailer)))
}

// RecordNotification counts one alert; result is sent or failed.
func (m *Metrics) RecordNotification(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordCycle(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Record(ctx, float64(d)/float64(time.Millisecond))
}
