package routing

import (
	"errors"

	"routecore/pkg/httpx"
	"routecore/pkg/middleware"
	"routecore/pkg/registry"
)

const (
	handlerSays  = "i am handler"
	middlewareAp = "; hello handler, i am middleware"
	secretGet    = "someGet"
)

var errHandler = errors.New("handler exploded")

// appendAfter appends text when the query carries key. replace builds a new
// response instead of editing the current one.
type appendAfter struct {
	key     string
	text    string
	replace bool
	exit    bool
}

func (a appendAfter) After(req *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
	if !req.Has(a.key) {
		return nil, false, nil
	}
	if a.replace {
		r := httpx.NewResponse(resp.Body + a.text)
		r.Status = resp.Status
		return r, a.exit, nil
	}
	resp.Body += a.text
	return nil, a.exit, nil
}

type blockBefore struct{ key, say string }

func (b blockBefore) Before(req *httpx.Request) (*httpx.Response, error) {
	if req.Has(b.key) {
		return httpx.NewResponse(b.say), nil
	}
	return nil, nil
}

type notMiddleware struct{}

func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.HandleBare("Test::handler", func() (any, error) { return httpx.NewResponse(handlerSays), nil })
	reg.HandleBare("Test::text", func() (any, error) { return handlerSays, nil })
	reg.Handle("Test::hello", func(req *httpx.Request) (any, error) {
		return httpx.NewResponse("Hello " + req.Get("name")), nil
	})
	reg.HandleBare("Test::fail", func() (any, error) { return nil, errHandler })
	reg.HandleBare("Test::panic", func() (any, error) { panic("handler panicked") })

	reg.Middleware("Test::replace", func() any { return appendAfter{key: secretGet, text: middlewareAp, replace: true} })
	reg.Middleware("Test::update", func() any { return appendAfter{key: secretGet, text: middlewareAp} })
	reg.Middleware("Test::updateExit", func() any { return appendAfter{key: secretGet, text: middlewareAp, exit: true} })
	reg.Middleware("Test::replaceExit", func() any {
		return appendAfter{key: secretGet, text: middlewareAp, replace: true, exit: true}
	})
	reg.Middleware("Test::block", func() any { return blockBefore{key: secretGet, say: "i am middleware"} })
	reg.Middleware("Test::broken", func() any { return notMiddleware{} })
	reg.Middleware("Test::beforeFails", func() any {
		return middleware.BeforeFunc(func(*httpx.Request) (*httpx.Response, error) {
			return nil, errors.New("before failed")
		})
	})
	reg.Middleware("Test::afterFails", func() any {
		return middleware.AfterFunc(func(*httpx.Request, *httpx.Response) (*httpx.Response, bool, error) {
			return nil, false, errors.New("after failed")
		})
	})
	return reg
}

func request(withSecret bool) *httpx.Request {
	req := httpx.NewRequest(httpx.MethodGet, "/")
	if withSecret {
		req.Query.Set(secretGet, "yes")
	}
	return req
}

func repeat(ref registry.Ref, n int) []registry.Ref {
	out := make([]registry.Ref, n)
	for i := range out {
		out[i] = ref
	}
	return out
}
