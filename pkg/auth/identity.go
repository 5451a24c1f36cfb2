package auth

import (
	"strings"

	"routecore/pkg/config"
	"routecore/pkg/httpx"
)

// Role is the caller role derived from its api key.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleAdmin:
		return "admin"
	default:
		return "unauth"
	}
}

// request context keys
const (
	ContextRole = "auth.role"
	ContextKey  = "auth.key"
)

// SecConfig is the resolved security configuration.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
	PublicPaths    []string
}

// FromConfig converts the yaml security section.
func FromConfig(c config.SecurityConfig) SecConfig {
	return SecConfig{
		AllowedOrigins: c.CORS.AllowedOrigins,
		RPS:            c.RateLimit.RPS,
		Burst:          c.RateLimit.Burst,
		IPWhitelist:    c.IPWhitelist,
		BackendKeys:    keySet(c.APIKeys.Backend),
		FrontendKeys:   keySet(c.APIKeys.Frontend),
		AdminKeys:      keySet(c.APIKeys.Admin),
		PublicPaths:    c.PublicPaths,
	}
}

func keySet(keys []string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			m[k] = struct{}{}
		}
	}
	return m
}

// Authenticate resolves the caller role. The returned key identifies the
// caller for rate limiting: the api key when present, else the client ip.
func Authenticate(req *httpx.Request, cfg SecConfig) (Role, string, bool) {
	key := APIKey(req)
	if key == "" {
		return RoleUnauth, req.IP, false
	}
	if _, ok := cfg.AdminKeys[key]; ok {
		return RoleAdmin, key, true
	}
	if _, ok := cfg.BackendKeys[key]; ok {
		return RoleBackend, key, true
	}
	if _, ok := cfg.FrontendKeys[key]; ok {
		return RoleFrontend, key, true
	}
	return RoleUnauth, key, true
}

// APIKey reads a bearer token or the X-API-Key header.
func APIKey(req *httpx.Request) string {
	auth := req.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		if key := strings.TrimSpace(auth[7:]); key != "" {
			return key
		}
	}
	return strings.TrimSpace(req.Header.Get("X-API-Key"))
}

// RoleOf returns the role the gateway stored on req.
func RoleOf(req *httpx.Request) Role {
	if req.Context == nil {
		return RoleUnauth
	}
	v, ok := req.Context.Get(ContextRole)
	if !ok {
		return RoleUnauth
	}
	r, _ := v.(Role)
	return r
}
