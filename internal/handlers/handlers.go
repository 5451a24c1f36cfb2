// Package handlers holds the built-in handler and middleware registrations
// shared by the server and the CLI.
package handlers

import (
	_ "embed"
	"fmt"
	"iter"
	"net/http"

	"routecore/pkg/api"
	"routecore/pkg/auth"
	"routecore/pkg/httpx"
	"routecore/pkg/middleware"
	"routecore/pkg/registry"
	"routecore/pkg/routing"
	"routecore/pkg/telemetry"
)

//go:embed routes.yaml
var DefaultManifest []byte

// Deps are the shared middleware instances and build info the built-ins
// close over.
type Deps struct {
	Version string
	Gateway *auth.Gateway
	Metrics *telemetry.Metrics
	// Index returns the live route index for Handlers::index.
	Index func() routing.Index
}

// Register adds every built-in to reg and returns it.
func Register(reg *registry.Registry, deps Deps) *registry.Registry {
	registerMiddleware(reg, deps)

	reg.HandleBare("Handlers::root", func() (any, error) { return "main page", nil })
	reg.Handle("Handlers::hello", hello)
	reg.Handle("Handlers::echo", echo)
	reg.HandleBare("Handlers::version", func() (any, error) {
		v := deps.Version
		if v == "" {
			v = "dev"
		}
		return map[string]string{"version": v}, nil
	})
	reg.Handle("Handlers::stream", stream)
	reg.HandleBare("Handlers::index", func() (any, error) {
		var entries []routing.Entry
		if deps.Index != nil {
			entries = deps.Index().Entries()
		}
		return httpx.JSON(map[string]any{"count": len(entries), "routes": entries}, http.StatusOK)
	})

	reg.Annotate("Handlers::echo", noStore)
	reg.Annotate("Handlers::stream", noStore)
	return reg
}

func registerMiddleware(reg *registry.Registry, deps Deps) {
	reg.Middleware("Telemetry::requestId", func() any { return telemetry.RequestID{} })
	reg.Middleware("Auth::admin", func() any {
		return middleware.BeforeFunc(auth.RequireRole(auth.RoleAdmin))
	})
	if deps.Gateway != nil {
		reg.Middleware("Auth::gateway", func() any { return deps.Gateway })
	}
	if deps.Metrics != nil {
		reg.Middleware("Telemetry::metrics", func() any { return deps.Metrics })
	}
}

func noStore() any {
	return middleware.AfterFunc(func(_ *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
		resp.SetHeader("Cache-Control", "no-store")
		return nil, false, nil
	})
}

func hello(req *httpx.Request) (any, error) {
	return "Hello " + api.QueryString(req, "name"), nil
}

type echoBody struct {
	Method    string              `json:"method"`
	Path      string              `json:"path"`
	Query     map[string][]string `json:"query,omitempty"`
	Form      map[string][]string `json:"form,omitempty"`
	Body      string              `json:"body,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

func echo(req *httpx.Request) (any, error) {
	return echoBody{
		Method:    req.Method.String(),
		Path:      req.Path,
		Query:     req.Query,
		Form:      req.Form,
		Body:      string(req.Body),
		RequestID: telemetry.RequestIDOf(req),
	}, nil
}

const maxStreamChunks = 1000

func stream(req *httpx.Request) (any, error) {
	n := api.QueryInt(req, "count", 3)
	if n < 0 || n > maxStreamChunks {
		return httpx.JSONError(http.StatusBadRequest, fmt.Sprintf("count must be between 0 and %d", maxStreamChunks)), nil
	}
	var seq iter.Seq[string] = func(yield func(string) bool) {
		for i := 1; i <= n; i++ {
			if !yield(fmt.Sprintf("chunk %d\n", i)) {
				return
			}
		}
	}
	return seq, nil
}
