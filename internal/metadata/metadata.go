// Package metadata implements the run-level property list the pipeline
// publishes alongside a catalog, e.g. the aperture radii backing
// multi-aperture field names, so downstream consumers never re-derive them
// from configuration.
package metadata

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// PropertyList is an insertion-ordered string-keyed property collection.
type PropertyList struct {
	mu     sync.Mutex
	order  []string
	values map[string]any
}

// NewPropertyList creates an empty property list.
func NewPropertyList() *PropertyList {
	return &PropertyList{values: make(map[string]any)}
}

// NewRunPropertyList creates a property list pre-stamped with a unique run
// identifier under RUN_ID.
func NewRunPropertyList() *PropertyList {
	pl := NewPropertyList()
	pl.Set("RUN_ID", uuid.NewString())
	return pl
}

// Set stores a value under a key, preserving first-insertion order.
func (pl *PropertyList) Set(key string, value any) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if _, exists := pl.values[key]; !exists {
		pl.order = append(pl.order, key)
	}
	pl.values[key] = value
}

// Get returns the value stored under a key.
func (pl *PropertyList) Get(key string) (any, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	v, ok := pl.values[key]
	return v, ok
}

// GetArray returns a float64 slice stored under a key.
func (pl *PropertyList) GetArray(key string) ([]float64, error) {
	v, ok := pl.Get(key)
	if !ok {
		return nil, fmt.Errorf("metadata key %q not found", key)
	}
	arr, ok := v.([]float64)
	if !ok {
		return nil, fmt.Errorf("metadata key %q holds %T, not []float64", key, v)
	}
	return arr, nil
}

// Keys returns the keys in insertion order.
func (pl *PropertyList) Keys() []string {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	out := make([]string, len(pl.order))
	copy(out, pl.order)
	return out
}

// MarshalYAML implements yaml.Marshaler, emitting a mapping whose keys keep
// their insertion order.
func (pl *PropertyList) MarshalYAML() (any, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range pl.order {
		var keyNode, valNode yaml.Node
		keyNode.SetString(k)
		if err := valNode.Encode(pl.values[k]); err != nil {
			return nil, fmt.Errorf("encoding metadata key %q: %w", k, err)
		}
		node.Content = append(node.Content, &keyNode, &valNode)
	}
	return node, nil
}

// ToYAML renders the property list as a YAML document.
func (pl *PropertyList) ToYAML() ([]byte, error) {
	return yaml.Marshal(pl)
}
