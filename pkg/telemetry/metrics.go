package telemetry

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"routecore/pkg/httpx"
	"routecore/pkg/logger"
)

const contextStart = "telemetry.start"

// Metrics records request counts and latencies per route.
type Metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	failures *prometheus.CounterVec
	slow     time.Duration
}

// NewMetrics builds a metrics set on its own registry. Requests slower
// than slow are logged once their response has been sent.
func NewMetrics(namespace string, slow time.Duration) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests that reached a route, by method, path and status.",
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from the first middleware to the end of the after chain.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_failures_total",
			Help:      "Pipeline failures by stage.",
		}, []string{"stage"}),
		slow: slow,
	}
	m.reg.MustRegister(
		m.requests,
		m.latency,
		m.failures,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Number of active goroutines.",
		}, func() float64 { return float64(runtime.NumGoroutine()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_alloc_bytes",
			Help:      "Current heap allocation in bytes.",
		}, func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		}),
	)
	return m
}

// Registry exposes the underlying prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Failure counts a pipeline failure for stage.
func (m *Metrics) Failure(stage string) {
	m.failures.WithLabelValues(stage).Inc()
}

// Before stamps the request start time.
func (m *Metrics) Before(req *httpx.Request) (*httpx.Response, error) {
	if req.Context != nil {
		req.Context.Set(contextStart, time.Now())
	}
	return nil, nil
}

// After observes the response and schedules the access log line, at warn
// level for slow requests.
func (m *Metrics) After(req *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
	elapsed := time.Duration(0)
	if req.Context != nil {
		if v, ok := req.Context.Get(contextStart); ok {
			if start, ok := v.(time.Time); ok {
				elapsed = time.Since(start)
			}
		}
	}
	status := resp.StatusCode()
	method := string(req.Method)
	m.requests.WithLabelValues(method, req.Path, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, req.Path).Observe(elapsed.Seconds())

	id := RequestIDOf(req)
	slow := m.slow > 0 && elapsed >= m.slow
	resp.OnSent(func() {
		if slow {
			logger.Warn("slow_request", "method", method, "path", req.Path, "status", status, "elapsed", elapsed.String(), "request_id", id)
			return
		}
		logger.Debug("request_served", "method", method, "path", req.Path, "status", status, "elapsed", elapsed.String(), "request_id", id)
	})
	return nil, false, nil
}
