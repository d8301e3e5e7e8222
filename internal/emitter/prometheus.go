package emitter

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PrometheusEmitter exposes the latest statuses as gauges and counts changes. It
// records through an OTel meter; the Prometheus exporter behind that meter serves them.
type PrometheusEmitter struct {
	meter metric.Meter

	// Metrics
	resourceStatus     metric.Int64ObservableGauge
	pollErrorsTotal    metric.Int64Counter
	statusChangesTotal metric.Int64Counter

	// State for observable gauge, keyed by kind
	mu        sync.RWMutex
	snapshots map[string]Snapshot

	// Diff tracking
	diffTracker *DiffTracker
}

// NewPrometheusEmitter creates a Prometheus emitter on meter.
func NewPrometheusEmitter(meter metric.Meter) (*PrometheusEmitter, error) {
	e := &PrometheusEmitter{
		meter:       meter,
		snapshots:   make(map[string]Snapshot),
		diffTracker: NewDiffTracker(),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *PrometheusEmitter) initMetrics() error {
	var err error

	e.resourceStatus, err = e.meter.Int64ObservableGauge(
		"cirrus_resource_status",
		metric.WithDescription("Current status of a polled cloud resource"),
		metric.WithInt64Callback(e.observeStatuses),
	)
	if err != nil {
		return fmt.Errorf("create resource_status gauge: %w", err)
	}

	e.pollErrorsTotal, err = e.meter.Int64Counter(
		"cirrus_poll_errors_total",
		metric.WithDescription("Total failed status polls"),
	)
	if err != nil {
		return fmt.Errorf("create poll_errors counter: %w", err)
	}

	e.statusChangesTotal, err = e.meter.Int64Counter(
		"cirrus_status_changes_total",
		metric.WithDescription("Total resource status changes detected"),
	)
	if err != nil {
		return fmt.Errorf("create status_changes counter: %w", err)
	}

	return nil
}

// Emit records the snapshot. A failed poll keeps the previous statuses on display.
func (e *PrometheusEmitter) Emit(ctx context.Context, s Snapshot) error {
	attrs := []attribute.KeyValue{
		attribute.String("provider", s.Provider),
		attribute.String("region", s.Region),
		attribute.String("kind", s.Kind),
	}

	if s.Error != nil {
		e.pollErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
		log.Error().
			Err(s.Error).
			Str("provider", s.Provider).
			Str("region", s.Region).
			Str("kind", s.Kind).
			Msg("status poll failed")
		return nil // Don't fail on poll errors
	}

	e.emitChanges(ctx, s)

	e.mu.Lock()
	e.snapshots[s.Kind] = s
	e.mu.Unlock()

	e.diffTracker.Update(s)

	log.Info().
		Str("provider", s.Provider).
		Str("region", s.Region).
		Str("kind", s.Kind).
		Int("resources", len(s.Statuses)).
		Dur("duration", s.Duration).
		Msg("status poll complete")

	return nil
}

// emitChanges computes diffs and emits metrics/logs for changes.
func (e *PrometheusEmitter) emitChanges(ctx context.Context, s Snapshot) {
	changes := e.diffTracker.ComputeDiff(s)
	if changes == nil {
		// First poll of this kind - baseline established
		return
	}

	for _, c := range changes {
		e.statusChangesTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", s.Provider),
			attribute.String("region", s.Region),
			attribute.String("kind", c.Kind),
			attribute.String("change_type", string(c.Type)),
		))

		log.Info().
			Str("id", c.ID).
			Str("kind", c.Kind).
			Str("region", s.Region).
			Str("change", string(c.Type)).
			Str("from", c.Previous).
			Str("to", c.Current).
			Msg("resource status changed")
	}
}

// observeStatuses is the callback for the resource_status gauge.
func (e *PrometheusEmitter) observeStatuses(_ context.Context, o metric.Int64Observer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, s := range e.snapshots {
		for _, st := range s.Statuses {
			o.Observe(1, metric.WithAttributes(
				attribute.String("id", st.ID),
				attribute.String("kind", s.Kind),
				attribute.String("provider", s.Provider),
				attribute.String("region", s.Region),
				attribute.String("status", st.Value),
			))
		}
	}

	return nil
}

// Close is a no-op for Prometheus emitter.
func (e *PrometheusEmitter) Close() error {
	return nil
}
