// Package registry resolves handler and middleware references to the
// functions behind them. A Registry is filled once at startup and only read
// afterwards.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"routecore/pkg/httpx"
)

// HandlerFunc takes the request and returns a response-like value.
type HandlerFunc func(req *httpx.Request) (any, error)

// BareHandlerFunc takes nothing and returns a response-like value.
type BareHandlerFunc func() (any, error)

// MiddlewareFactory builds a middleware instance. It should return a value
// implementing middleware.Before, middleware.After or both.
type MiddlewareFactory func() any

// Handler is a resolved handler of either shape.
type Handler struct {
	withRequest HandlerFunc
	bare        BareHandlerFunc
}

// Call invokes the handler, passing req only when its shape takes one.
func (h Handler) Call(req *httpx.Request) (any, error) {
	if h.bare != nil {
		return h.bare()
	}
	return h.withRequest(req)
}

// TakesRequest reports the declared shape.
func (h Handler) TakesRequest() bool { return h.withRequest != nil }

type Registry struct {
	mu          sync.RWMutex
	handlers    map[Ref]Handler
	middleware  map[Ref]MiddlewareFactory
	annotations map[Ref][]MiddlewareFactory
}

func New() *Registry {
	return &Registry{
		handlers:    make(map[Ref]Handler),
		middleware:  make(map[Ref]MiddlewareFactory),
		annotations: make(map[Ref][]MiddlewareFactory),
	}
}

// Handle registers h under ref. It panics on an invalid reference or a nil
// function since both are programming errors caught at startup.
func (r *Registry) Handle(ref Ref, h HandlerFunc) *Registry {
	if h == nil {
		panic(fmt.Sprintf("registry: nil handler for %s", ref))
	}
	r.putHandler(ref, Handler{withRequest: h})
	return r
}

// HandleBare registers a handler that ignores the request.
func (r *Registry) HandleBare(ref Ref, h BareHandlerFunc) *Registry {
	if h == nil {
		panic(fmt.Sprintf("registry: nil handler for %s", ref))
	}
	r.putHandler(ref, Handler{bare: h})
	return r
}

func (r *Registry) putHandler(ref Ref, h Handler) {
	mustValid(ref)
	r.mu.Lock()
	r.handlers[ref] = h
	r.mu.Unlock()
}

// Middleware registers a middleware factory under ref.
func (r *Registry) Middleware(ref Ref, f MiddlewareFactory) *Registry {
	mustValid(ref)
	if f == nil {
		panic(fmt.Sprintf("registry: nil middleware factory for %s", ref))
	}
	r.mu.Lock()
	r.middleware[ref] = f
	r.mu.Unlock()
	return r
}

// Annotate attaches extra middleware to a handler without putting it in the
// serialized endpoint. Repeated calls append.
func (r *Registry) Annotate(handler Ref, factories ...MiddlewareFactory) *Registry {
	mustValid(handler)
	r.mu.Lock()
	for _, f := range factories {
		if f == nil {
			r.mu.Unlock()
			panic(fmt.Sprintf("registry: nil annotation for %s", handler))
		}
		r.annotations[handler] = append(r.annotations[handler], f)
	}
	r.mu.Unlock()
	return r
}

func (r *Registry) LookupHandler(ref Ref) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[ref]
	return h, ok
}

func (r *Registry) LookupMiddleware(ref Ref) (MiddlewareFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.middleware[ref]
	return f, ok
}

// Annotations returns the factories attached to handler, in order.
func (r *Registry) Annotations(handler Ref) []MiddlewareFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]MiddlewareFactory(nil), r.annotations[handler]...)
}

// HandlerRefs lists registered handlers sorted.
func (r *Registry) HandlerRefs() []Ref {
	r.mu.RLock()
	out := make([]Ref, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MiddlewareRefs lists registered middleware sorted.
func (r *Registry) MiddlewareRefs() []Ref {
	r.mu.RLock()
	out := make([]Ref, 0, len(r.middleware))
	for k := range r.middleware {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func mustValid(ref Ref) {
	if err := ref.Validate(); err != nil {
		panic("registry: " + err.Error())
	}
}
