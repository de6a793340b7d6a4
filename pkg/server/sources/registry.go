package sources

import (
	"fmt"
	"sort"
	"sync"
)

var (
	extractors = make(map[string]ExtractorFactory)
	mu         sync.RWMutex
)

// RegisterExtractor adds an extractor factory under the given kind.
func RegisterExtractor(kind string, factory ExtractorFactory) {
	mu.Lock()
	defer mu.Unlock()
	extractors[kind] = factory
}

// NewExtractor creates an extractor of the given kind.
func NewExtractor(kind string, params map[string]interface{}) (Extractor, error) {
	mu.RLock()
	factory, ok := extractors[kind]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtractor, kind)
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return factory(params)
}

// ExtractorKinds returns all registered extractor kinds, sorted.
func ExtractorKinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]string, 0, len(extractors))
	for kind := range extractors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// NewDescriptor builds and validates a descriptor using a registered extractor kind.
func NewDescriptor(name, endpoint, kind string, params map[string]interface{}) (Descriptor, error) {
	ex, err := NewExtractor(kind, params)
	if err != nil {
		return Descriptor{}, fmt.Errorf("source %s: %w", name, err)
	}
	d := Descriptor{Name: name, Endpoint: endpoint, Extractor: ex}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Registry is the read-only catalog of sources polled each cycle.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry validates the descriptors and freezes them into a registry.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	seen := make(map[string]struct{}, len(descs))
	list := make([]Descriptor, 0, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidDescriptor, ErrDuplicateSource, d.Name)
		}
		seen[d.Name] = struct{}{}
		list = append(list, d)
	}
	return &Registry{descriptors: list}, nil
}

// Descriptors returns a copy of the registered descriptors.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// Names returns the source names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		names = append(names, d.Name)
	}
	return names
}
