// Package emitter publishes the status snapshots taken by the watch loop.
package emitter

import (
	"context"
	"time"
)

// Resource kinds polled by the watch loop.
const (
	KindVirtualMachine = "virtual_machine"
	KindIpAddress      = "ip_address"
	KindScalingGroup   = "scaling_group"
)

// Status is one resource in a snapshot.
type Status struct {
	ID    string `json:"id"`
	Value string `json:"status"`
}

// Snapshot is the result of polling one resource kind.
type Snapshot struct {
	Provider string        `json:"provider"`
	Region   string        `json:"region"`
	Kind     string        `json:"kind"`
	Statuses []Status      `json:"statuses"`
	PolledAt time.Time     `json:"polled_at"`
	Duration time.Duration `json:"duration"`
	Error    error         `json:"-"`
}

// Emitter outputs snapshots to a backend.
type Emitter interface {
	// Emit publishes one snapshot. A snapshot carrying an Error is still emitted.
	Emit(ctx context.Context, s Snapshot) error

	// Close cleans up resources.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to all emitters, returns first error.
func (m *MultiEmitter) Emit(ctx context.Context, s Snapshot) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all emitters.
func (m *MultiEmitter) Close() error {
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			return err
		}
	}
	return nil
}
