package routing

import (
	"iter"

	"routecore/pkg/registry"
)

// MiddlewareSource contributes middleware for an endpoint at run time,
// after the endpoint's declared middleware.
type MiddlewareSource interface {
	Middleware(e *Endpoint) iter.Seq[any]
}

// Annotations is a MiddlewareSource reading the handler annotations kept
// in a registry.
type Annotations struct {
	Registry *registry.Registry
}

func (a Annotations) Middleware(e *Endpoint) iter.Seq[any] {
	return func(yield func(any) bool) {
		if a.Registry == nil {
			return
		}
		for _, f := range a.Registry.Annotations(e.Handler()) {
			if !yield(f()) {
				return
			}
		}
	}
}

// Sources chains several sources in order.
type Sources []MiddlewareSource

func (s Sources) Middleware(e *Endpoint) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, src := range s {
			if src == nil {
				continue
			}
			for mw := range src.Middleware(e) {
				if !yield(mw) {
					return
				}
			}
		}
	}
}

var (
	_ MiddlewareSource = Annotations{}
	_ MiddlewareSource = Sources(nil)
)
