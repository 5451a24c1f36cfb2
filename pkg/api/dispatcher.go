package api

import (
	"errors"
	"net/http"

	"routecore/pkg/auth"
	"routecore/pkg/httpx"
	"routecore/pkg/logger"
	"routecore/pkg/routing"
	"routecore/pkg/telemetry"
)

// Dispatcher turns a transport request into a route lookup followed by the
// endpoint pipeline.
type Dispatcher struct {
	router     routing.Router
	normalizer routing.Normalizer
	source     routing.MiddlewareSource
	metrics    *telemetry.Metrics
	preflight  func(*httpx.Request) *httpx.Response
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNormalizer sets the handler output normalizer.
func WithNormalizer(n routing.Normalizer) Option {
	return func(d *Dispatcher) { d.normalizer = n }
}

// WithSource sets the run-time middleware source.
func WithSource(s routing.MiddlewareSource) Option {
	return func(d *Dispatcher) { d.source = s }
}

// WithMetrics counts pipeline failures on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithPreflight answers CORS preflight requests for paths that have no
// OPTIONS route but are registered under the requested method.
func WithPreflight(fn func(*httpx.Request) *httpx.Response) Option {
	return func(d *Dispatcher) { d.preflight = fn }
}

func NewDispatcher(r routing.Router, opts ...Option) *Dispatcher {
	d := &Dispatcher{router: r}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Handle never returns nil. Lookup misses become 404 and pipeline failures
// become 500; failure details are logged, never sent.
func (d *Dispatcher) Handle(req *httpx.Request) *httpx.Response {
	tr := telemetry.Track("dispatch")
	defer tr.Finish()

	res, err := d.router.GetRoute(req.Method, req.Path)
	if errors.Is(err, routing.ErrNotFound) && d.preflight != nil && auth.IsPreflight(req) {
		if d.preflightTarget(req) {
			tr.Mark("preflight")
			return d.preflight(req)
		}
	}
	tr.Mark("lookup")
	switch {
	case errors.Is(err, routing.ErrNotFound):
		logger.Debug("route_not_found", "method", string(req.Method), "path", req.Path)
		return httpx.JSONError(http.StatusNotFound, "not found")
	case errors.Is(err, routing.ErrNotInitialized):
		logger.Warn("route_table_not_ready", "path", req.Path)
		return httpx.JSONError(http.StatusServiceUnavailable, "not ready")
	case err != nil:
		logger.Error("route_lookup_failed", "method", string(req.Method), "path", req.Path, "error", err)
		return httpx.JSONError(http.StatusInternalServerError, "internal error")
	}

	tr.Set("handler", res.Endpoint.Handler().String())
	if len(res.Params) > 0 {
		req = req.WithParams(res.Params)
	}
	resp, err := res.Endpoint.Run(req, d.normalizer, d.source)
	tr.Mark("pipeline")
	if err != nil {
		stage := failureStage(err)
		logger.Error("pipeline_failed",
			"method", string(req.Method),
			"path", req.Path,
			"handler", res.Endpoint.Handler().String(),
			"stage", stage,
			"request_id", telemetry.RequestIDOf(req),
			"error", err)
		if d.metrics != nil {
			d.metrics.Failure(stage)
		}
		return httpx.JSONError(http.StatusInternalServerError, "internal error")
	}
	return resp
}

// preflightTarget reports whether the method named by
// Access-Control-Request-Method is routed for req.Path.
func (d *Dispatcher) preflightTarget(req *httpx.Request) bool {
	m, err := httpx.ParseMethod(req.Header.Get("Access-Control-Request-Method"))
	if err != nil {
		return false
	}
	_, err = d.router.GetRoute(m, req.Path)
	return err == nil
}

func failureStage(err error) string {
	var pe *routing.PipelineError
	if errors.As(err, &pe) {
		return string(pe.Stage)
	}
	if errors.Is(err, routing.ErrInvalidResponseType) {
		return "response_type"
	}
	return "unknown"
}
