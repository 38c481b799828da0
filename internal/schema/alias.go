package schema

import (
	"sort"
	"strings"
)

// AliasMap maps field-name prefixes to other prefixes, so that downstream
// consumers can refer to "slot_Centroid_x" and reach whichever plugin is
// bound to the centroid slot. Resolution substitutes the longest matching
// alias prefix; a prefix matches only at a full name or an underscore
// boundary.
type AliasMap struct {
	m map[string]string
}

// NewAliasMap creates an empty alias map.
func NewAliasMap() *AliasMap {
	return &AliasMap{m: make(map[string]string)}
}

// Set binds an alias prefix to a target prefix, replacing any previous
// binding.
func (a *AliasMap) Set(alias, target string) {
	a.m[alias] = target
}

// Erase removes an alias binding.
func (a *AliasMap) Erase(alias string) {
	delete(a.m, alias)
}

// Get returns the target bound to an alias, if any.
func (a *AliasMap) Get(alias string) (string, bool) {
	t, ok := a.m[alias]
	return t, ok
}

// Resolve substitutes the longest alias prefix matching name. Names with no
// matching alias are returned unchanged. Substitution is applied once, not
// recursively.
func (a *AliasMap) Resolve(name string) string {
	best := ""
	for alias := range a.m {
		if alias != name && !strings.HasPrefix(name, alias+"_") {
			continue
		}
		if len(alias) > len(best) {
			best = alias
		}
	}
	if best == "" {
		return name
	}
	return a.m[best] + name[len(best):]
}

// Names returns the alias names in sorted order.
func (a *AliasMap) Names() []string {
	names := make([]string, 0, len(a.m))
	for n := range a.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
