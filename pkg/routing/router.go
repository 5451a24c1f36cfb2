package routing

import "routecore/pkg/httpx"

// Result is a successful lookup: the endpoint and any path parameters the
// index extracted.
type Result struct {
	Endpoint *Endpoint
	Params   map[string]string
}

// IndexMaker builds the index a Router consumes.
type IndexMaker interface {
	AddEndpoint(method httpx.Method, path string, ep *Endpoint) error
	Make() Index
}

// Router looks up endpoints. Init must be called once, before any GetRoute.
type Router interface {
	Init(idx Index) error
	GetRoute(method httpx.Method, path string) (Result, error)
	IndexMaker() IndexMaker
}
