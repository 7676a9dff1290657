package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "drift-sim/internal/telemetry"

// Metrics records simulation events as OpenTelemetry instruments.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	shifts       metric.Int64Counter
	tractionLost metric.Int64Counter
	checkpoints  metric.Int64Counter
	tickDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on m. A nil meter uses the global provider,
// which is a no-op until an SDK is installed.
func NewMetrics(m metric.Meter) (*Metrics, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	var (
		out Metrics
		err error
	)

	out.shifts, err = m.Int64Counter(
		"vehicle.gearbox.shifts",
		metric.WithDescription("Gear changes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shift counter: %w", err)
	}

	out.tractionLost, err = m.Int64Counter(
		"vehicle.traction.lost",
		metric.WithDescription("Wheels that started sliding"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating traction counter: %w", err)
	}

	out.checkpoints, err = m.Int64Counter(
		"vehicle.checkpoints",
		metric.WithDescription("Logical checkpoints passed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating checkpoint counter: %w", err)
	}

	out.tickDuration, err = m.Float64Histogram(
		"vehicle.tick.duration",
		metric.WithDescription("Wall time spent in one simulation tick"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick histogram: %w", err)
	}

	return &out, nil
}

// Shift counts a gear change in the given direction ("up" or "down").
func (m *Metrics) Shift(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	m.shifts.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// TractionLost counts a wheel that started sliding.
func (m *Metrics) TractionLost(ctx context.Context, wheel string) {
	if m == nil {
		return
	}
	m.tractionLost.Add(ctx, 1, metric.WithAttributes(attribute.String("wheel", wheel)))
}

// Checkpoint counts a logical checkpoint.
func (m *Metrics) Checkpoint(ctx context.Context) {
	if m == nil {
		return
	}
	m.checkpoints.Add(ctx, 1)
}

// TickDuration records how long a tick took in seconds.
func (m *Metrics) TickDuration(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.tickDuration.Record(ctx, seconds)
}
