package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"github.com/valyala/fasthttp"

	"routecore/internal/handlers"
	"routecore/internal/retention"
	"routecore/pkg/api"
	"routecore/pkg/auth"
	"routecore/pkg/compress"
	"routecore/pkg/config"
	"routecore/pkg/logger"
	"routecore/pkg/progressor"
	"routecore/pkg/registry"
	"routecore/pkg/response"
	"routecore/pkg/routing"
	"routecore/pkg/sensor"
	"routecore/pkg/state"
	"routecore/pkg/store"
	"routecore/pkg/telemetry"
)

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	paths      state.Paths
	store      *store.Store
	reg        *registry.Registry
	table      *routing.Hashmap
	gateway    *auth.Gateway
	metrics    *telemetry.Metrics
	sensor     *sensor.Sensor
	dispatcher *api.Dispatcher
	ops        *api.Ops
	index      IndexSource

	retention       *retention.Manager
	retentionCancel context.CancelFunc

	srv     *http.Server
	srvFast *fasthttp.Server
	state   atomic.Value
}

// New opens the store, loads or builds the route index and initialises the
// route table. It does not listen; call Run for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if err := config.ValidateConfig(eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	paths, err := state.Init(eff.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure state directories under %s: %w", eff.DBPath, err)
	}

	if dir := cfg.Telemetry.TraceDir; dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(paths.Tel, dir)
		}
		if err := telemetry.Init(dir, telemetry.TraceOptions{}); err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	st, err := store.Open(paths.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", paths.Store, err)
	}
	if _, err := progressor.Run(context.Background(), st); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		paths:     paths,
		store:     st,
		reg:       registry.New(),
		gateway:   auth.NewGateway(auth.FromConfig(cfg.Security)),
		metrics:   telemetry.NewMetrics(cfg.Telemetry.MetricsNamespace, cfg.Telemetry.SlowThreshold.Duration()),
	}
	a.state.Store("starting")
	if sc := cfg.Telemetry.Sensor; sc.Enabled {
		a.sensor = sensor.New(sensor.FromConfig(sc), paths.DB)
		if err := a.sensor.Register(a.metrics.Registry(), cfg.Telemetry.MetricsNamespace); err != nil {
			a.closeResources()
			return nil, fmt.Errorf("register sensor metrics: %w", err)
		}
	}
	a.table = routing.NewHashmap(a.reg)
	handlers.Register(a.reg, handlers.Deps{
		Version: version,
		Gateway: a.gateway,
		Metrics: a.metrics,
		Index:   a.table.Index,
	})

	idx, src, err := LoadIndex(st, a.reg, a.table.IndexMaker(), cfg.Routes)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	if err := a.table.Init(idx); err != nil {
		a.closeResources()
		return nil, err
	}
	a.index = src
	logger.Info("route_table_ready", "routes", idx.Len(), "source", src.Kind, "version", src.Version)

	sources := routing.Sources{routing.Annotations{Registry: a.reg}}
	if cfg.Telemetry.Compress.Enabled {
		sources = append(sources, compress.New(int(cfg.Telemetry.Compress.MinBytes.Int64())))
	}
	a.dispatcher = api.NewDispatcher(a.table,
		api.WithNormalizer(response.Default{}),
		api.WithSource(sources),
		api.WithMetrics(a.metrics),
		api.WithPreflight(a.gateway.Preflight))
	a.ops = &api.Ops{
		Version:  version,
		Ready:    a.Ready,
		Index:    a.table.Index,
		Metrics:  a.metrics,
		Sensor:   a.sensor,
		Security: auth.FromConfig(cfg.Security),
	}
	return a, nil
}

// Ready reports whether the store is open and the route table initialised.
func (a *App) Ready() bool {
	return a.store.Ready() && a.table.Ready()
}

// State returns the lifecycle state: starting, running, shutting_down or
// stopped.
func (a *App) State() string {
	s, _ := a.state.Load().(string)
	return s
}

// IndexSource returns where the live index came from.
func (a *App) IndexSource() IndexSource { return a.index }

// Handler returns the net/http handler serving ops routes and the route
// table.
func (a *App) Handler() http.Handler {
	return api.NetHTTPHandler(a.dispatcher, a.ops, a.eff.Config.Server.MaxBodySize.Int64())
}

// FastHandler is the fasthttp equivalent of Handler.
func (a *App) FastHandler() fasthttp.RequestHandler {
	return api.FastHTTPHandler(a.dispatcher, a.ops)
}

// Run starts retention and the HTTP server, and blocks until ctx is done or
// the server fails.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	m, cancel, err := retention.Start(ctx, a.eff.Config.Retention, a.store, a.paths.State)
	if err != nil {
		return err
	}
	a.retention, a.retentionCancel = m, cancel
	if a.sensor != nil {
		a.sensor.Start()
	}

	errCh := a.startHTTP(ctx)
	a.state.Store("running")
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) closeResources() {
	if a.sensor != nil {
		a.sensor.Stop()
	}
	a.gateway.Close()
	if err := a.store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	telemetry.Close()
}
