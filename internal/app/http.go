package app

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"

	"routecore/pkg/config/banner"
	"routecore/pkg/logger"
)

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.PrintWithEff(a.eff, verStr, a.table.Index().Len())
}

// startHTTP starts the configured transport in a goroutine and returns a
// channel that receives the server error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	cfg := a.eff.Config
	addr := a.eff.Addr
	if addr == "" {
		addr = cfg.Addr()
	}
	cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
	errCh := make(chan error, 1)

	if cfg.Server.Transport == "nethttp" {
		a.srv = &http.Server{
			Addr:         addr,
			Handler:      a.Handler(),
			ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
			WriteTimeout: cfg.Server.WriteTimeout.Duration(),
			IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
		}
		go func() {
			logger.Info("http_listening", "addr", addr, "transport", "nethttp", "tls", cert != "")
			if cert != "" && key != "" {
				errCh <- a.srv.ListenAndServeTLS(cert, key)
			} else {
				errCh <- a.srv.ListenAndServe()
			}
		}()
		return errCh
	}

	const readBufferSize = 64 * 1024
	a.srvFast = &fasthttp.Server{
		Handler:            a.FastHandler(),
		Name:               "routecore",
		ReadBufferSize:     readBufferSize,
		MaxRequestBodySize: int(cfg.Server.MaxBodySize.Int64()),
		ReadTimeout:        cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:       cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:        cfg.Server.IdleTimeout.Duration(),
	}
	go func() {
		logger.Info("http_listening", "addr", addr, "transport", "fasthttp", "tls", cert != "")
		if cert != "" && key != "" {
			errCh <- a.srvFast.ListenAndServeTLS(addr, cert, key)
		} else {
			errCh <- a.srvFast.ListenAndServe(addr)
		}
	}()
	return errCh
}
