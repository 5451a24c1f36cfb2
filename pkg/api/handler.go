package api

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"routecore/pkg/httpx"
)

// FastHTTPHandler serves ops paths through the ops router and everything
// else through the dispatcher.
func FastHTTPHandler(d *Dispatcher, ops *Ops) fasthttp.RequestHandler {
	app := httpx.FastHTTPAdapter(d.Handle)
	if ops == nil {
		return app
	}
	opsHandler := fasthttpadaptor.NewFastHTTPHandler(ops.Router())
	paths := make(map[string]struct{}, len(OpsPaths))
	for _, p := range OpsPaths {
		if p == "/metrics" && ops.Metrics == nil {
			continue
		}
		paths[p] = struct{}{}
	}
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := paths[string(ctx.Path())]; ok {
			opsHandler(ctx)
			return
		}
		app(ctx)
	}
}

// NetHTTPHandler mounts the ops routes on a gorilla mux router whose
// fallback is the dispatcher.
func NetHTTPHandler(d *Dispatcher, ops *Ops, maxBody int64) http.Handler {
	app := httpx.NetHTTPAdapter(d.Handle, maxBody)
	if ops == nil {
		return app
	}
	r := ops.Router()
	r.NotFoundHandler = app
	return r
}
