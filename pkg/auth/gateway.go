package auth

import (
	"net/http"
	"strings"
	"sync"

	"routecore/pkg/httpx"
	"routecore/pkg/logger"
)

// Gateway is the front-door middleware: CORS, ip whitelist, api keys and
// rate limiting. One Gateway is shared by every endpoint so the limiter
// buckets are global per caller.
type Gateway struct {
	cfg      SecConfig
	limiters *limiterPool
	public   map[string]struct{}
	// open is set when no api keys are configured; every path is public.
	open bool
	once sync.Once
}

// NewGateway returns a gateway for cfg.
func NewGateway(cfg SecConfig) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		limiters: newLimiterPool(cfg.RPS, cfg.Burst),
		public:   make(map[string]struct{}, len(cfg.PublicPaths)),
		open:     len(cfg.AdminKeys)+len(cfg.BackendKeys)+len(cfg.FrontendKeys) == 0,
	}
	for _, p := range cfg.PublicPaths {
		g.public[p] = struct{}{}
	}
	return g
}

// Close stops the limiter cleanup loop.
func (g *Gateway) Close() {
	g.once.Do(g.limiters.close)
}

// Before rejects requests that fail any gateway check.
func (g *Gateway) Before(req *httpx.Request) (*httpx.Response, error) {
	logger.LogRequest(string(req.Method), req.Path, req.IP, req.Header)

	if IsPreflight(req) {
		return g.Preflight(req), nil
	}

	if len(g.cfg.IPWhitelist) > 0 && !ipWhitelisted(req.IP, g.cfg.IPWhitelist) {
		logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", req.IP, "path", req.Path)
		return g.reject(req, http.StatusForbidden, "forbidden"), nil
	}

	role, key, hasAPIKey := Authenticate(req, g.cfg)
	logger.Debug("auth_check", "role", role.String(), "has_api_key", hasAPIKey)

	if _, ok := g.public[req.Path]; !ok && !g.open {
		if role == RoleUnauth {
			logger.Warn("request_unauthorized", "path", req.Path, "remote", req.IP)
			return g.reject(req, http.StatusUnauthorized, "unauthorized"), nil
		}
	}
	if req.Context != nil {
		req.Context.Set(ContextRole, role)
		req.Context.Set(ContextKey, key)
	}

	if !g.limiters.Allow(key) {
		logger.Warn("rate_limited", "has_api_key", hasAPIKey, "path", req.Path)
		return g.reject(req, http.StatusTooManyRequests, "rate limit exceeded"), nil
	}

	logger.Debug("request_allowed", "method", string(req.Method), "path", req.Path, "role", role.String())
	return nil, nil
}

// IsPreflight reports whether req is a CORS preflight. A plain OPTIONS
// request is not; it goes to whatever OPTIONS handler is registered.
func IsPreflight(req *httpx.Request) bool {
	return req.Method == httpx.MethodOptions && req.Header.Get("Access-Control-Request-Method") != ""
}

// Preflight answers a CORS preflight with 204. CORS headers are only set
// for allowed origins.
func (g *Gateway) Preflight(req *httpx.Request) *httpx.Response {
	resp := &httpx.Response{Status: http.StatusNoContent}
	g.cors(req, resp)
	return resp
}

// After decorates allowed responses with CORS headers.
func (g *Gateway) After(req *httpx.Request, resp *httpx.Response) (*httpx.Response, bool, error) {
	g.cors(req, resp)
	return nil, false, nil
}

func (g *Gateway) reject(req *httpx.Request, status int, msg string) *httpx.Response {
	resp := httpx.JSONError(status, msg)
	g.cors(req, resp)
	return resp
}

func (g *Gateway) cors(req *httpx.Request, resp *httpx.Response) {
	origin := req.Header.Get("Origin")
	if origin == "" || !originAllowed(origin, g.cfg.AllowedOrigins) {
		return
	}
	resp.SetHeader("Access-Control-Allow-Origin", origin)
	resp.SetHeader("Vary", "Origin")
	resp.SetHeader("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,PATCH,HEAD,OPTIONS")
	resp.SetHeader("Access-Control-Max-Age", "600")
	resp.SetHeader("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key,X-Request-Id")
	resp.SetHeader("Access-Control-Expose-Headers", "X-Request-Id")
}

// RequireRole returns a before-middleware that only lets callers with at
// least min through. It must run after the gateway.
func RequireRole(min Role) func(req *httpx.Request) (*httpx.Response, error) {
	return func(req *httpx.Request) (*httpx.Response, error) {
		if role := RoleOf(req); role < min {
			logger.Warn("request_forbidden", "reason", "role", "role", role.String(), "want", min.String(), "path", req.Path)
			return httpx.JSONError(http.StatusForbidden, "forbidden"), nil
		}
		return nil, nil
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func ipWhitelisted(ip string, list []string) bool {
	for _, w := range list {
		if ip == w {
			return true
		}
	}
	return false
}
