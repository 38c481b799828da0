package apcorr

import (
	"sort"
	"sync"
)

// The package-level name registry mirrors plugin registration: a plugin
// whose flux should be corrected registers its field prefix at process
// start, and the pipeline intersects that set with what its schema actually
// carries.
var (
	namesMu sync.Mutex
	names   = make(map[string]struct{})
)

// AddApCorrName marks a flux field prefix as eligible for aperture
// correction.
func AddApCorrName(name string) {
	namesMu.Lock()
	defer namesMu.Unlock()
	names[name] = struct{}{}
}

// ClearApCorrNames empties the registry. Tests use it to isolate their own
// registrations.
func ClearApCorrNames() {
	namesMu.Lock()
	defer namesMu.Unlock()
	names = make(map[string]struct{})
}

// ApCorrNames returns the registered prefixes in sorted order.
func ApCorrNames() []string {
	namesMu.Lock()
	defer namesMu.Unlock()
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
