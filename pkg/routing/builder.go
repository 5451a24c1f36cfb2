package routing

import (
	"fmt"

	"routecore/pkg/httpx"
)

// IndexBuilder accumulates endpoints into an Index. It is single use and not
// safe for concurrent use; build the index before serving any lookup.
type IndexBuilder struct {
	index Index
	made  bool
}

func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{index: make(Index)}
}

// AddEndpoint registers ep at (method, path). Registering an endpoint that
// serializes to the stored value again is a no-op; anything else at the
// same key is ErrDuplicateRoutePath.
func (b *IndexBuilder) AddEndpoint(method httpx.Method, path string, ep *Endpoint) error {
	if b.made {
		return ErrBuilderConsumed
	}
	if !method.Valid() {
		return fmt.Errorf("%w: %q", httpx.ErrUnsupportedMethod, string(method))
	}
	if !PathAllowed(path) {
		return fmt.Errorf("%w: %s %q", ErrNoAllowedRoutePath, method, path)
	}
	serialized, err := ep.Serialize()
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	paths, ok := b.index[method]
	if !ok {
		paths = make(map[string]string)
		b.index[method] = paths
	}
	if existing, ok := paths[path]; ok {
		if existing == serialized {
			return nil
		}
		return fmt.Errorf("%w: %s %s is bound to %q, got %q", ErrDuplicateRoutePath, method, path, existing, serialized)
	}
	paths[path] = serialized
	return nil
}

// Make returns the finished index. The builder rejects further additions.
func (b *IndexBuilder) Make() Index {
	b.made = true
	return b.index.Clone()
}

var _ IndexMaker = (*IndexBuilder)(nil)
