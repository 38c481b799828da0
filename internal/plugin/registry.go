package plugin

import (
	"fmt"
	"sort"
)

// Registry maps plugin names to their descriptors. It is populated by
// explicit registration calls at process start and is read-only during a
// measurement run.
type Registry struct {
	descriptors map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// Register publishes a descriptor under a unique name.
func (r *Registry) Register(name string, d *Descriptor) error {
	if _, exists := r.descriptors[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePlugin, name)
	}
	r.descriptors[name] = d
	return nil
}

// MustRegister is Register for process-start wiring, where a duplicate is a
// programmer error.
func (r *Registry) MustRegister(name string, d *Descriptor) {
	if err := r.Register(name, d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}
	return d, nil
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for n := range r.descriptors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Entry pairs a configured plugin name with its descriptor.
type Entry struct {
	Name       string
	Descriptor *Descriptor
}

// Resolve maps a configured plugin set to its execution order: ascending by
// declared order value, ties broken by name. The result depends only on the
// configured set and the descriptors, never on registration timing or map
// iteration, so the same configuration always yields the same sequence.
func (r *Registry) Resolve(names []string) ([]Entry, error) {
	seen := make(map[string]struct{}, len(names))
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("plugin %q configured more than once", name)
		}
		seen[name] = struct{}{}
		d, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: name, Descriptor: d})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Descriptor.Order != entries[j].Descriptor.Order {
			return entries[i].Descriptor.Order < entries[j].Descriptor.Order
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
