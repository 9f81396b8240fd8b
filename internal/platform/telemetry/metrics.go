// Package telemetry provides the OpenTelemetry-backed implementation of the
// kernel's observability sink.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	kernel "github.com/plenumhq/plenum/internal/kernel/telemetry"
)

const meterName = "github.com/plenumhq/plenum/internal/platform/telemetry"

// MetricsSink reports journal append outcomes and commit-path durations as
// OpenTelemetry metrics. Recording is fire-and-forget and never gates the
// append result.
type MetricsSink struct {
	appends  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetricsSink creates a sink on the provided meter. A nil meter uses the
// globally registered provider, which defaults to a no-op.
func NewMetricsSink(meter metric.Meter) (*MetricsSink, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	appends, err := meter.Int64Counter(
		"plenum.journal.appends",
		metric.WithDescription("Append attempts by outcome."),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"plenum.journal.append.duration",
		metric.WithDescription("Commit-path duration by outcome."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &MetricsSink{appends: appends, duration: duration}, nil
}

// AppendOutcome implements telemetry.Sink.
func (s *MetricsSink) AppendOutcome(ctx context.Context, outcome kernel.Outcome) {
	if s == nil || s.appends == nil {
		return
	}
	s.appends.Add(ctx, 1, metric.WithAttributes(outcomeAttribute(outcome)))
}

// AppendDuration implements telemetry.Sink.
func (s *MetricsSink) AppendDuration(ctx context.Context, outcome kernel.Outcome, d time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.Record(ctx, float64(d)/float64(time.Millisecond),
		metric.WithAttributes(outcomeAttribute(outcome)))
}

func outcomeAttribute(outcome kernel.Outcome) attribute.KeyValue {
	return attribute.String("outcome", string(outcome))
}
