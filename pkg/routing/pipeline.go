package routing

import (
	"fmt"

	"routecore/pkg/httpx"
	"routecore/pkg/middleware"
	"routecore/pkg/registry"
)

// Normalizer turns raw handler output into a response.
type Normalizer interface {
	Normalize(v any) (*httpx.Response, error)
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(v any) (*httpx.Response, error)

func (f NormalizerFunc) Normalize(v any) (*httpx.Response, error) { return f(v) }

// Run executes the endpoint for req: before-middleware, handler,
// normalization, after-middleware. normalizer and source may be nil.
func (e *Endpoint) Run(req *httpx.Request, normalizer Normalizer, source MiddlewareSource) (*httpx.Response, error) {
	mws := e.resolve(source)

	for _, m := range mws {
		b, ok := m.mw.(middleware.Before)
		if !ok {
			continue
		}
		resp, err := callBefore(b, req)
		if err != nil {
			return nil, &PipelineError{Stage: StageBefore, Participant: m.name, Err: err}
		}
		if resp != nil {
			return resp, nil
		}
	}

	h, ok := e.reg.LookupHandler(e.handler)
	if !ok {
		return nil, &PipelineError{
			Stage:       StageHandler,
			Participant: string(e.handler),
			Err:         &ValidationError{Kind: ErrInvalidHandler, Ref: string(e.handler), Reason: "not registered"},
		}
	}
	raw, err := callHandler(h, req)
	if err != nil {
		return nil, &PipelineError{Stage: StageHandler, Participant: string(e.handler), Err: err}
	}

	var resp *httpx.Response
	if normalizer != nil {
		resp, err = callNormalize(normalizer, raw)
		if err != nil {
			return nil, &PipelineError{Stage: StageNormalize, Participant: string(e.handler), Err: err}
		}
	} else {
		resp, _ = raw.(*httpx.Response)
	}
	if resp == nil {
		return nil, &ResponseTypeError{
			Handler:    string(e.handler),
			Type:       fmt.Sprintf("%T", raw),
			Normalized: normalizer != nil,
		}
	}

	for _, m := range mws {
		a, ok := m.mw.(middleware.After)
		if !ok {
			continue
		}
		next, finalize, err := callAfter(a, req, resp)
		if err != nil {
			return nil, &PipelineError{Stage: StageAfter, Participant: m.name, Err: err}
		}
		if next != nil {
			resp = next
		}
		if finalize {
			return resp, nil
		}
	}
	return resp, nil
}

func callBefore(b middleware.Before, req *httpx.Request) (resp *httpx.Response, err error) {
	defer recoverInto(&err)
	return b.Before(req)
}

func callHandler(h registry.Handler, req *httpx.Request) (out any, err error) {
	defer recoverInto(&err)
	return h.Call(req)
}

func callNormalize(n Normalizer, raw any) (resp *httpx.Response, err error) {
	defer recoverInto(&err)
	return n.Normalize(raw)
}

func callAfter(a middleware.After, req *httpx.Request, resp *httpx.Response) (next *httpx.Response, finalize bool, err error) {
	defer recoverInto(&err)
	return a.After(req, resp)
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = &PanicError{Value: r}
	}
}
