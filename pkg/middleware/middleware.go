// Package middleware defines the two capabilities a middleware may have:
// running before the handler and running after it.
package middleware

import "routecore/pkg/httpx"

// Before runs ahead of the handler. A non-nil response short-circuits the
// request: the handler and every after-middleware are skipped.
type Before interface {
	Before(req *httpx.Request) (*httpx.Response, error)
}

// After runs once the handler produced a response. It may mutate resp in
// place and return nil, or return a replacement that later middleware and
// the caller see instead. finalize stops the rest of the after-chain.
type After interface {
	After(req *httpx.Request, resp *httpx.Response) (next *httpx.Response, finalize bool, err error)
}

// BeforeFunc adapts a function to Before.
type BeforeFunc func(req *httpx.Request) (*httpx.Response, error)

func (f BeforeFunc) Before(req *httpx.Request) (*httpx.Response, error) { return f(req) }

// AfterFunc adapts a function to After.
type AfterFunc func(req *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error)

func (f AfterFunc) After(req *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
	return f(req, resp)
}

// Pair implements both capabilities from two functions.
type Pair struct {
	BeforeFn BeforeFunc
	AfterFn  AfterFunc
}

// Both returns a middleware that has both capabilities. Either function may
// be nil, in which case that phase is a no-op.
func Both(before BeforeFunc, after AfterFunc) *Pair {
	return &Pair{BeforeFn: before, AfterFn: after}
}

func (p *Pair) Before(req *httpx.Request) (*httpx.Response, error) {
	if p.BeforeFn == nil {
		return nil, nil
	}
	return p.BeforeFn(req)
}

func (p *Pair) After(req *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
	if p.AfterFn == nil {
		return nil, false, nil
	}
	return p.AfterFn(req, resp)
}

// Capable reports whether m has at least one capability.
func Capable(m any) bool {
	_, b := m.(Before)
	_, a := m.(After)
	return a || b
}

var (
	_ Before = BeforeFunc(nil)
	_ After  = AfterFunc(nil)
	_ Before = (*Pair)(nil)
	_ After  = (*Pair)(nil)
)
