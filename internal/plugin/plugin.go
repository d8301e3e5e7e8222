// Package plugin keeps the registry of cloud provider factories.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yairfalse/cirrus/internal/config"
	"github.com/yairfalse/cirrus/internal/invoker"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// Factory opens a provider from configuration. rec may be nil.
type Factory func(ctx context.Context, cfg *config.Config, rec invoker.Recorder) (cloud.Provider, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register adds a factory under name, replacing any earlier one.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Open looks up name and calls its factory.
func Open(ctx context.Context, name string, cfg *config.Config, rec invoker.Recorder) (cloud.Provider, error) {
	f, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %v)", name, Names())
	}
	p, err := f(ctx, cfg, rec)
	if err != nil {
		return nil, fmt.Errorf("open provider %s: %w", name, err)
	}
	return p, nil
}

// Names returns all registered provider names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all factories from the registry. Used for testing.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Factory)
}
