// Package filter narrows what the watch loop polls and reports.
package filter

import (
	"context"

	"github.com/yairfalse/cirrus/internal/daemon"
	"github.com/yairfalse/cirrus/internal/emitter"
)

// Filter drops whole resource kinds and single resource ids from the watch loop.
type Filter struct {
	excludeKinds map[string]bool
	excludeIDs   map[string]bool
}

// New creates a new Filter from the provided configuration.
func New(excludeKinds, excludeIDs []string) *Filter {
	f := &Filter{
		excludeKinds: make(map[string]bool, len(excludeKinds)),
		excludeIDs:   make(map[string]bool, len(excludeIDs)),
	}
	for _, k := range excludeKinds {
		f.excludeKinds[k] = true
	}
	for _, id := range excludeIDs {
		f.excludeIDs[id] = true
	}
	return f
}

// ShouldPollKind returns true if the given resource kind should be polled.
func (f *Filter) ShouldPollKind(kind string) bool {
	return !f.excludeKinds[kind]
}

// FilterStatuses returns only statuses whose id is not excluded.
func (f *Filter) FilterStatuses(statuses []emitter.Status) []emitter.Status {
	if len(f.excludeIDs) == 0 {
		return statuses
	}

	filtered := make([]emitter.Status, 0, len(statuses))
	for _, s := range statuses {
		if !f.excludeIDs[s.ID] {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Pollers drops excluded kinds and wraps the rest so excluded ids never reach an emitter.
func (f *Filter) Pollers(pollers []daemon.Poller) []daemon.Poller {
	if f.IsEmpty() {
		return pollers
	}

	out := make([]daemon.Poller, 0, len(pollers))
	for _, p := range pollers {
		if !f.ShouldPollKind(p.Kind) {
			continue
		}
		poll := p.Poll
		p.Poll = func(ctx context.Context) ([]emitter.Status, error) {
			statuses, err := poll(ctx)
			if err != nil {
				return nil, err
			}
			return f.FilterStatuses(statuses), nil
		}
		out = append(out, p)
	}
	return out
}

// IsEmpty returns true if no filters are configured.
func (f *Filter) IsEmpty() bool {
	return len(f.excludeKinds) == 0 && len(f.excludeIDs) == 0
}
