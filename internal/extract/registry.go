package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownStore is returned when no extractor is registered for a store.
var ErrUnknownStore = errors.New("unknown store")

// Registry maps store identifiers to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register adds ex under its Site().Store name.
func (r *Registry) Register(ex Extractor) error {
	name := strings.ToLower(strings.TrimSpace(ex.Site().Store))
	if name == "" {
		return fmt.Errorf("extractor has no store name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.extractors[name]; ok {
		return fmt.Errorf("store %q already registered", name)
	}
	r.extractors[name] = ex
	return nil
}

// Lookup returns the extractor for store.
func (r *Registry) Lookup(store string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.extractors[strings.ToLower(strings.TrimSpace(store))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, store)
	}
	return ex, nil
}

// Stores lists registered store names in order.
func (r *Registry) Stores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Default is the process-wide registry the built-in stores register into.
func Default() *Registry {
	return defaultRegistry
}

// Register adds ex to the default registry and panics on a duplicate.
func Register(ex Extractor) {
	if err := defaultRegistry.Register(ex); err != nil {
		panic(err)
	}
}

// Lookup finds a store in the default registry.
func Lookup(store string) (Extractor, error) {
	return defaultRegistry.Lookup(store)
}

// Stores lists the stores in the default registry.
func Stores() []string {
	return defaultRegistry.Stores()
}
