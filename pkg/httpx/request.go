package httpx

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"sync"
)

// FileHeader describes an uploaded multipart file.
type FileHeader struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
}

// Request is the transport-independent request handed to middleware and
// handlers. Every field is populated by an adapter before the pipeline runs
// and must not be modified afterwards. Context is the only mutable surface.
type Request struct {
	Ctx     context.Context
	Method  Method
	Path    string
	Query   url.Values
	Form    url.Values
	Cookies map[string]string
	Header  http.Header
	Files   []FileHeader
	Body    []byte
	Params  map[string]string
	IP      string

	// Context carries scratch values between middleware and the handler.
	Context *Context

	// Raw holds the underlying transport request (*http.Request or
	// *fasthttp.RequestCtx) for escape hatches.
	Raw any
}

// NewRequest builds a request with empty containers, mostly for tests and
// in-process dispatch.
func NewRequest(method Method, path string) *Request {
	return &Request{
		Ctx:     context.Background(),
		Method:  method,
		Path:    path,
		Query:   url.Values{},
		Form:    url.Values{},
		Cookies: map[string]string{},
		Header:  http.Header{},
		Params:  map[string]string{},
		Context: NewContext(),
	}
}

// Get returns the first query value for key.
func (r *Request) Get(key string) string { return r.Query.Get(key) }

// Has reports whether the query string carries key.
func (r *Request) Has(key string) bool { return r.Query.Has(key) }

// Post returns the first form value for key.
func (r *Request) Post(key string) string { return r.Form.Get(key) }

// Param returns a route-extracted path parameter.
func (r *Request) Param(key string) string { return r.Params[key] }

// WithParams returns a shallow copy carrying params. The context container
// is shared with the original.
func (r *Request) WithParams(params map[string]string) *Request {
	cp := *r
	cp.Params = params
	return &cp
}

// Context is a concurrency-safe key/value container.
type Context struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (c *Context) String(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

func (c *Context) Delete(key string) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
}

// Keys returns the stored keys sorted.
func (c *Context) Keys() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.values))
	for k := range c.values {
		out = append(out, k)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}
