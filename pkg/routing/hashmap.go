package routing

import (
	"fmt"
	"sync/atomic"

	"routecore/pkg/httpx"
	"routecore/pkg/registry"
)

// Hashmap is an exact-match route table. After Init nothing is written, so
// lookups need no locking.
type Hashmap struct {
	reg   *registry.Registry
	state atomic.Pointer[hashmapState]
}

type hashmapState struct {
	index     Index
	endpoints map[httpx.Method]map[string]*Endpoint
}

// NewHashmap returns a table resolving endpoints through reg.
func NewHashmap(reg *registry.Registry) *Hashmap {
	return &Hashmap{reg: reg}
}

// Init installs idx, deserializing every endpoint up front so their
// middleware memo survives across requests. A second call fails.
func (h *Hashmap) Init(idx Index) error {
	st := &hashmapState{
		index:     idx.Clone(),
		endpoints: make(map[httpx.Method]map[string]*Endpoint, len(idx)),
	}
	for m, paths := range st.index {
		eps := make(map[string]*Endpoint, len(paths))
		for p, s := range paths {
			eps[p] = Deserialize(h.reg, s)
		}
		st.endpoints[m] = eps
	}
	if !h.state.CompareAndSwap(nil, st) {
		return ErrAlreadyInitialized
	}
	return nil
}

// Ready reports whether Init succeeded.
func (h *Hashmap) Ready() bool { return h.state.Load() != nil }

// GetRoute finds the endpoint stored for (method, path). There is no
// trailing slash or case normalization.
func (h *Hashmap) GetRoute(method httpx.Method, path string) (Result, error) {
	st := h.state.Load()
	if st == nil {
		return Result{}, ErrNotInitialized
	}
	ep, ok := st.endpoints[method][path]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	return Result{Endpoint: ep, Params: map[string]string{}}, nil
}

// Index returns a copy of the installed index, or nil before Init.
func (h *Hashmap) Index() Index {
	st := h.state.Load()
	if st == nil {
		return nil
	}
	return st.index.Clone()
}

func (h *Hashmap) IndexMaker() IndexMaker { return NewIndexBuilder() }

var _ Router = (*Hashmap)(nil)
