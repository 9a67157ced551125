package stage

import (
	"fmt"
	"sync"
)

// Config represents stage-specific construction options (opaque to the compiler).
type Config map[string]any

// Factory constructs a stage with the provided configuration.
type Factory func(Config) (Stage, error)

type registration struct {
	info    Info
	factory Factory
}

// Registry maintains known stage factories in registration order. The order is
// the default declaration order used when callers do not supply their own.
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]registration
	order   []Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[Kind]registration{}}
}

// Register installs a stage factory. Returns an error if the kind already exists.
func (r *Registry) Register(info Info, factory Factory) error {
	if err := info.Validate(); err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("stage: factory is required for %s", info.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[info.Kind]; exists {
		return fmt.Errorf("stage: %s already registered", info.Kind)
	}
	r.entries[info.Kind] = registration{info: info, factory: factory}
	r.order = append(r.order, info.Kind)
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(info Info, factory Factory) {
	if err := r.Register(info, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs a fresh stage of the given kind.
func (r *Registry) Resolve(kind Kind, cfg Config) (Stage, error) {
	r.mu.RLock()
	entry, ok := r.entries[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("stage: unknown kind %s", kind)
	}
	s, err := entry.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("stage: build %s: %w", kind, err)
	}
	if s == nil {
		return nil, fmt.Errorf("stage: factory for %s returned nil", kind)
	}
	info := s.Info()
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if info.Kind != kind {
		return nil, fmt.Errorf("stage: factory for %s built %s", kind, info.Kind)
	}
	return s, nil
}

// Lookup returns the registered info for kind.
func (r *Registry) Lookup(kind Kind) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[kind]
	return entry.info, ok
}

// Kinds returns the registered kinds of a family in registration order.
func (r *Registry) Kinds(family Family) []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Kind
	for _, kind := range r.order {
		if r.entries[kind].info.Family == family {
			out = append(out, kind)
		}
	}
	return out
}
