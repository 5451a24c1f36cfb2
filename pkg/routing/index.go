package routing

import (
	"fmt"
	"regexp"
	"sort"

	"routecore/pkg/httpx"
)

// Index maps method to path to serialized endpoint. It is the artifact a
// builder produces and a route table consumes.
type Index map[httpx.Method]map[string]string

var allowedPath = regexp.MustCompile(`^/[a-zA-Z0-9_\-./:@&=+$,;!*'()%]*$`)

// PathAllowed reports whether path may be registered.
func PathAllowed(path string) bool { return allowedPath.MatchString(path) }

// Entry is one (method, path, endpoint) row of an index.
type Entry struct {
	Method   httpx.Method `json:"method"`
	Path     string       `json:"path"`
	Endpoint string       `json:"endpoint"`
}

// Entries flattens the index sorted by method order then path.
func (idx Index) Entries() []Entry {
	var out []Entry
	for _, m := range httpx.Methods {
		paths := idx[m]
		keys := make([]string, 0, len(paths))
		for p := range paths {
			keys = append(keys, p)
		}
		sort.Strings(keys)
		for _, p := range keys {
			out = append(out, Entry{Method: m, Path: p, Endpoint: paths[p]})
		}
	}
	return out
}

// Len counts routes across all methods.
func (idx Index) Len() int {
	n := 0
	for _, paths := range idx {
		n += len(paths)
	}
	return n
}

// Clone deep-copies the index.
func (idx Index) Clone() Index {
	out := make(Index, len(idx))
	for m, paths := range idx {
		cp := make(map[string]string, len(paths))
		for p, s := range paths {
			cp[p] = s
		}
		out[m] = cp
	}
	return out
}

// Check verifies every method and path in a loaded index. Endpoint strings
// are not resolved.
func (idx Index) Check() error {
	for m, paths := range idx {
		if !m.Valid() {
			return fmt.Errorf("%w: %q", httpx.ErrUnsupportedMethod, string(m))
		}
		for p, s := range paths {
			if !PathAllowed(p) {
				return fmt.Errorf("%w: %s %q", ErrNoAllowedRoutePath, m, p)
			}
			if s == "" {
				return fmt.Errorf("%w: %s %s has an empty endpoint", ErrInvalidHandler, m, p)
			}
		}
	}
	return nil
}
