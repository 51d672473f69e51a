package matcher

import (
	"fmt"
	"log/slog"
	"sync"
)

// QuerySource produces additional candidate queries for a match context.
// External packages register sources at process start to contribute their
// own voucher types to matching. A source may return nothing.
type QuerySource func(mc MatchContext) []Query

// Registry holds named extension query sources. The matcher's built-in
// builders are always applied separately; the registry only carries
// extensions.
type Registry struct {
	sources map[string]QuerySource
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates an empty extension registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]QuerySource)}
}

// Register adds a named query source. Registering the same name twice is an
// error.
func (r *Registry) Register(name string, source QuerySource) error {
	if name == "" {
		return fmt.Errorf("query source name cannot be empty")
	}
	if source == nil {
		return fmt.Errorf("query source %s cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("query source %s already registered", name)
	}

	r.sources[name] = source
	r.order = append(r.order, name)
	slog.Info("Registered matching query source", "name", name)
	return nil
}

// Sources returns the registered sources in registration order.
func (r *Registry) Sources() []QuerySource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]QuerySource, 0, len(r.order))
	for _, name := range r.order {
		sources = append(sources, r.sources[name])
	}
	return sources
}

// Names returns the registered source names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
