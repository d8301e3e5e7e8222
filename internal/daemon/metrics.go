package daemon

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DaemonMetrics holds operational metrics using OTEL semantic conventions
type DaemonMetrics struct {
	polls        metric.Int64Counter
	pollDuration metric.Float64Histogram
	resources    metric.Int64Gauge
}

// NewDaemonMetrics creates daemon metrics on the global meter provider.
func NewDaemonMetrics() (*DaemonMetrics, error) {
	return newDaemonMetricsWithProvider(otel.GetMeterProvider())
}

// NewDaemonMetricsWithMeter creates daemon metrics on meter.
func NewDaemonMetricsWithMeter(meter metric.Meter) (*DaemonMetrics, error) {
	polls, err := meter.Int64Counter(
		"cirrus.watch.polls",
		metric.WithDescription("Number of status polls"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	pollDuration, err := meter.Float64Histogram(
		"cirrus.watch.poll.duration",
		metric.WithDescription("Duration of status polls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	resources, err := meter.Int64Gauge(
		"cirrus.watch.resources",
		metric.WithDescription("Number of resources seen by the last poll"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	return &DaemonMetrics{
		polls:        polls,
		pollDuration: pollDuration,
		resources:    resources,
	}, nil
}

func newDaemonMetricsWithProvider(mp metric.MeterProvider) (*DaemonMetrics, error) {
	return NewDaemonMetricsWithMeter(mp.Meter("cirrus.watch"))
}

// RecordPoll records a poll with its outcome
func (m *DaemonMetrics) RecordPoll(ctx context.Context, status, kind, provider, region string) {
	m.polls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("resource.kind", kind),
			attribute.String("cloud.provider", provider),
			attribute.String("cloud.region", region),
		),
	)
}

// RecordPollDuration records poll duration
func (m *DaemonMetrics) RecordPollDuration(ctx context.Context, durationSeconds float64, kind string) {
	m.pollDuration.Record(ctx, durationSeconds,
		metric.WithAttributes(
			attribute.String("resource.kind", kind),
		),
	)
}

// RecordResources records number of resources found
func (m *DaemonMetrics) RecordResources(ctx context.Context, count int64, kind, provider, region string) {
	m.resources.Record(ctx, count,
		metric.WithAttributes(
			attribute.String("resource.kind", kind),
			attribute.String("cloud.provider", provider),
			attribute.String("cloud.region", region),
		),
	)
}
