package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"routecore/pkg/auth"
	"routecore/pkg/httpx"
	"routecore/pkg/logger"
	"routecore/pkg/routing"
	"routecore/pkg/sensor"
	"routecore/pkg/telemetry"
)

// OpsPaths are served by the ops router and never reach the route table.
var OpsPaths = []string{"/healthz", "/readyz", "/metrics", "/routes"}

// Ops serves health, readiness, metrics and the route listing.
type Ops struct {
	Version string
	Ready   func() bool
	Index   func() routing.Index
	Metrics *telemetry.Metrics
	// Sensor, when set, adds resource alerts to /readyz. Alerts do not fail
	// readiness.
	Sensor   *sensor.Sensor
	Security auth.SecConfig
}

// Router returns the ops routes on a gorilla mux router.
func (o *Ops) Router() *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)
	r.HandleFunc("/healthz", o.healthz).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", o.readyz).Methods(http.MethodGet, http.MethodHead)
	if o.Metrics != nil {
		r.Handle("/metrics", o.Metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/routes", o.routes).Methods(http.MethodGet)
	return r
}

func (o *Ops) healthz(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (o *Ops) readyz(w http.ResponseWriter, _ *http.Request) {
	if o.Ready == nil || !o.Ready() {
		_ = WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	ver := o.Version
	if ver == "" {
		ver = "dev"
	}
	body := map[string]any{"status": "ok", "version": ver}
	if o.Sensor != nil {
		st := o.Sensor.Status()
		body["degraded"] = st.Degraded()
		body["resources"] = st
	}
	_ = WriteJSON(w, http.StatusOK, body)
}

func (o *Ops) routes(w http.ResponseWriter, r *http.Request) {
	if len(o.Security.AdminKeys) > 0 {
		req, err := httpx.FromNetHTTP(r, httpx.MethodGet, 0)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if role, _, _ := auth.Authenticate(req, o.Security); role != auth.RoleAdmin {
			logger.Warn("request_forbidden", "reason", "admin_required", "path", r.URL.Path)
			WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}
	var entries []routing.Entry
	if o.Index != nil {
		entries = o.Index().Entries()
	}
	if entries == nil {
		entries = []routing.Entry{}
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"count": len(entries), "routes": entries})
}
