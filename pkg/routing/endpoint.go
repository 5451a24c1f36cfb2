package routing

import (
	"fmt"
	"strings"
	"sync"

	"routecore/pkg/logger"
	"routecore/pkg/middleware"
	"routecore/pkg/registry"
)

// Endpoint binds one handler reference and an ordered list of middleware
// references. It is immutable apart from the memoized middleware instances,
// so a single Endpoint may serve concurrent requests.
type Endpoint struct {
	reg        *registry.Registry
	handler    registry.Ref
	middleware []registry.Ref

	once     sync.Once
	resolved []resolvedMiddleware
}

type resolvedMiddleware struct {
	name string
	mw   any
}

// NewEndpoint describes handler wrapped by middleware, resolved through reg.
func NewEndpoint(reg *registry.Registry, handler registry.Ref, middleware ...registry.Ref) *Endpoint {
	return &Endpoint{
		reg:        reg,
		handler:    handler,
		middleware: append([]registry.Ref(nil), middleware...),
	}
}

func (e *Endpoint) Handler() registry.Ref { return e.handler }

func (e *Endpoint) Middleware() []registry.Ref {
	return append([]registry.Ref(nil), e.middleware...)
}

// Validate checks every reference resolves. With deep set it also builds
// each middleware and requires at least one capability; keep that for
// build time since factories may be expensive.
func (e *Endpoint) Validate(deep bool) error {
	if e.reg == nil {
		return &ValidationError{Kind: ErrInvalidHandler, Ref: string(e.handler), Reason: "no registry"}
	}
	if err := e.handler.Validate(); err != nil {
		return &ValidationError{Kind: ErrInvalidHandler, Ref: string(e.handler), Reason: err.Error()}
	}
	if _, ok := e.reg.LookupHandler(e.handler); !ok {
		return &ValidationError{Kind: ErrInvalidHandler, Ref: string(e.handler), Reason: "not registered"}
	}
	for _, ref := range e.middleware {
		if err := ref.Validate(); err != nil {
			return &ValidationError{Kind: ErrInvalidMiddleware, Ref: string(ref), Reason: err.Error()}
		}
		f, ok := e.reg.LookupMiddleware(ref)
		if !ok {
			return &ValidationError{Kind: ErrInvalidMiddleware, Ref: string(ref), Reason: "not registered"}
		}
		if deep && !middleware.Capable(f()) {
			return &ValidationError{Kind: ErrInvalidMiddleware, Ref: string(ref), Reason: "implements neither Before nor After"}
		}
	}
	return nil
}

// ResolveMiddleware builds the declared middleware once per Endpoint, then
// appends whatever source contributes for this call. Instances without a
// capability are logged and dropped.
func (e *Endpoint) ResolveMiddleware(source MiddlewareSource) []any {
	list := e.resolve(source)
	out := make([]any, len(list))
	for i, r := range list {
		out[i] = r.mw
	}
	return out
}

func (e *Endpoint) resolve(source MiddlewareSource) []resolvedMiddleware {
	e.once.Do(func() {
		for _, ref := range e.middleware {
			f, ok := e.reg.LookupMiddleware(ref)
			if !ok {
				logger.Error("middleware_unresolved", "middleware", string(ref), "handler", string(e.handler))
				continue
			}
			mw := f()
			if !middleware.Capable(mw) {
				logger.Error("middleware_capability_missing", "middleware", string(ref), "type", fmt.Sprintf("%T", mw))
				continue
			}
			e.resolved = append(e.resolved, resolvedMiddleware{name: string(ref), mw: mw})
		}
	})
	if source == nil {
		return e.resolved
	}

	out := append([]resolvedMiddleware(nil), e.resolved...)
	for mw := range source.Middleware(e) {
		name := fmt.Sprintf("%T", mw)
		if !middleware.Capable(mw) {
			logger.Error("middleware_capability_missing", "middleware", name, "handler", string(e.handler))
			continue
		}
		out = append(out, resolvedMiddleware{name: name, mw: mw})
	}
	return out
}

// Serialize deep-validates and renders "Handler,Mw1,Mw2".
func (e *Endpoint) Serialize() (string, error) {
	if err := e.Validate(true); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(e.middleware)+1)
	parts = append(parts, string(e.handler))
	for _, ref := range e.middleware {
		parts = append(parts, string(ref))
	}
	return strings.Join(parts, registry.Delimiter), nil
}

// Deserialize splits data produced by Serialize. Nothing is validated; an
// index is trusted to have been validated when it was built.
func Deserialize(reg *registry.Registry, data string) *Endpoint {
	tokens := strings.Split(data, registry.Delimiter)
	e := &Endpoint{reg: reg, handler: registry.Ref(tokens[0])}
	for _, t := range tokens[1:] {
		e.middleware = append(e.middleware, registry.Ref(t))
	}
	return e
}
