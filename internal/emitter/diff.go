package emitter

import (
	"sort"
	"sync"
)

// ChangeType classifies a status change between two polls.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Change is one resource whose presence or status differs from the previous poll.
type Change struct {
	Type     ChangeType `json:"type"`
	Kind     string     `json:"kind"`
	ID       string     `json:"id"`
	Previous string     `json:"previous,omitempty"`
	Current  string     `json:"current,omitempty"`
}

// DiffTracker remembers the last snapshot of every kind and reports changes.
type DiffTracker struct {
	mu       sync.RWMutex
	previous map[string]map[string]string
}

// NewDiffTracker creates a new diff tracker.
func NewDiffTracker() *DiffTracker {
	return &DiffTracker{
		previous: make(map[string]map[string]string),
	}
}

// ComputeDiff compares s against the last snapshot of the same kind.
// Returns nil on the first snapshot of a kind (baseline establishment).
// Returns an empty slice if nothing changed. Changes are ordered by id.
func (d *DiffTracker) ComputeDiff(s Snapshot) []Change {
	d.mu.RLock()
	defer d.mu.RUnlock()

	prev, ok := d.previous[s.Kind]
	if !ok {
		return nil
	}

	current := index(s.Statuses)
	changes := make([]Change, 0)
	for id, was := range prev {
		now, exists := current[id]
		switch {
		case !exists:
			changes = append(changes, Change{Type: ChangeRemoved, Kind: s.Kind, ID: id, Previous: was})
		case now != was:
			changes = append(changes, Change{Type: ChangeModified, Kind: s.Kind, ID: id, Previous: was, Current: now})
		}
	}
	for id, now := range current {
		if _, existed := prev[id]; !existed {
			changes = append(changes, Change{Type: ChangeAdded, Kind: s.Kind, ID: id, Current: now})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].ID < changes[j].ID })
	return changes
}

// Update stores s as the baseline for its kind.
func (d *DiffTracker) Update(s Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.previous[s.Kind] = index(s.Statuses)
}

func index(statuses []Status) map[string]string {
	m := make(map[string]string, len(statuses))
	for _, st := range statuses {
		m[st.ID] = st.Value
	}
	return m
}
