package app

import (
	"context"

	"routecore/pkg/logger"
	"routecore/pkg/shutdown"
	"routecore/pkg/telemetry"
)

// Shutdown stops the server, then retention, then closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.state.Store("shutting_down")
	err := shutdown.Run(ctx,
		shutdown.Step{Name: "http", Fn: a.stopHTTP},
		shutdown.Step{Name: "retention", Fn: func(context.Context) error {
			if a.retentionCancel != nil {
				a.retentionCancel()
			}
			return nil
		}},
		shutdown.Step{Name: "sensor", Fn: func(context.Context) error {
			if a.sensor != nil {
				a.sensor.Stop()
			}
			return nil
		}},
		shutdown.Step{Name: "gateway", Fn: func(context.Context) error {
			a.gateway.Close()
			return nil
		}},
		shutdown.Step{Name: "store", Fn: func(context.Context) error { return a.store.Close() }},
		shutdown.Step{Name: "telemetry", Fn: func(context.Context) error {
			telemetry.Close()
			return nil
		}},
	)
	if err == nil {
		a.state.Store("stopped")
	} else {
		logger.Error("shutdown_incomplete", "error", err)
	}
	return err
}

func (a *App) stopHTTP(ctx context.Context) error {
	if a.srvFast != nil {
		return a.srvFast.Shutdown()
	}
	if a.srv != nil {
		return a.srv.Shutdown(ctx)
	}
	return nil
}
