package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// holds parsed command-line flag values and which were set
type Flags struct {
	Addr   string
	DB     string
	Config string
	Routes string
	Set    map[string]bool
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// parses command-line flags and returns them as a Flags struct
func ParseConfigFlags() Flags {
	f, _ := ParseConfigFlagSet(flag.CommandLine, os.Args[1:])
	return f
}

// ParseConfigFlagSet registers the server flags on fs and parses args.
func ParseConfigFlagSet(fs *flag.FlagSet, args []string) (Flags, error) {
	addrPtr := fs.String("addr", ":8080", "HTTP listen address")
	dbPtr := fs.String("db", "./.database", "Pebble DB path for route index snapshots")
	cfgPtr := fs.String("config", "./config.yaml", "Path to config file")
	routesPtr := fs.String("routes", "", "Route manifest to build the index from")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	// record which flags were set explicitly
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Routes: *routesPtr, Set: setFlags}, nil
}

// loads config from file, returns config, found bool, and error
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

func parseList(v string) []string {
	if v == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func splitAddr(v string, cfg *Config) {
	if h, p, err := net.SplitHostPort(v); err == nil {
		cfg.Server.Address = h
		if pi, err := strconv.Atoi(p); err == nil {
			cfg.Server.Port = pi
		}
		return
	}
	cfg.Server.Address = v
}

// loads ROUTECORE_* environment variables into a new Config; the bool
// reports whether any was set
func ParseConfigEnvs() (*Config, bool) {
	envs := map[string]string{
		"ADDR":                     os.Getenv("ROUTECORE_ADDR"),
		"SERVER_ADDRESS":           os.Getenv("ROUTECORE_SERVER_ADDRESS"),
		"SERVER_PORT":              os.Getenv("ROUTECORE_SERVER_PORT"),
		"DB_PATH":                  os.Getenv("ROUTECORE_DB_PATH"),
		"TRANSPORT":                os.Getenv("ROUTECORE_TRANSPORT"),
		"MAX_BODY_SIZE":            os.Getenv("ROUTECORE_MAX_BODY_SIZE"),
		"READ_TIMEOUT":             os.Getenv("ROUTECORE_READ_TIMEOUT"),
		"WRITE_TIMEOUT":            os.Getenv("ROUTECORE_WRITE_TIMEOUT"),
		"TLS_CERT":                 os.Getenv("ROUTECORE_TLS_CERT"),
		"TLS_KEY":                  os.Getenv("ROUTECORE_TLS_KEY"),
		"ROUTES_MANIFEST":          os.Getenv("ROUTECORE_ROUTES_MANIFEST"),
		"ROUTES_INDEX_NAME":        os.Getenv("ROUTECORE_ROUTES_INDEX_NAME"),
		"ROUTES_REBUILD":           os.Getenv("ROUTECORE_ROUTES_REBUILD"),
		"ROUTES_SAVE":              os.Getenv("ROUTECORE_ROUTES_SAVE"),
		"CORS_ORIGINS":             os.Getenv("ROUTECORE_CORS_ORIGINS"),
		"RATE_RPS":                 os.Getenv("ROUTECORE_RATE_RPS"),
		"RATE_BURST":               os.Getenv("ROUTECORE_RATE_BURST"),
		"IP_WHITELIST":             os.Getenv("ROUTECORE_IP_WHITELIST"),
		"API_BACKEND_KEYS":         os.Getenv("ROUTECORE_API_BACKEND_KEYS"),
		"API_FRONTEND_KEYS":        os.Getenv("ROUTECORE_API_FRONTEND_KEYS"),
		"API_ADMIN_KEYS":           os.Getenv("ROUTECORE_API_ADMIN_KEYS"),
		"PUBLIC_PATHS":             os.Getenv("ROUTECORE_PUBLIC_PATHS"),
		"LOG_LEVEL":                os.Getenv("ROUTECORE_LOG_LEVEL"),
		"LOG_SINK":                 os.Getenv("ROUTECORE_LOG_SINK"),
		"LOG_FORMAT":               os.Getenv("ROUTECORE_LOG_FORMAT"),
		"TELEMETRY_SLOW_THRESHOLD": os.Getenv("ROUTECORE_TELEMETRY_SLOW_THRESHOLD"),
		"METRICS_NAMESPACE":        os.Getenv("ROUTECORE_METRICS_NAMESPACE"),
		"TRACE_DIR":                os.Getenv("ROUTECORE_TRACE_DIR"),
		"COMPRESS_ENABLED":         os.Getenv("ROUTECORE_COMPRESS_ENABLED"),
		"COMPRESS_MIN_BYTES":       os.Getenv("ROUTECORE_COMPRESS_MIN_BYTES"),
		"SENSOR_ENABLED":           os.Getenv("ROUTECORE_SENSOR_ENABLED"),
		"SENSOR_POLL_INTERVAL":     os.Getenv("ROUTECORE_SENSOR_POLL_INTERVAL"),
		"RETENTION_ENABLED":        os.Getenv("ROUTECORE_RETENTION_ENABLED"),
		"RETENTION_CRON":           os.Getenv("ROUTECORE_RETENTION_CRON"),
		"RETENTION_KEEP":           os.Getenv("ROUTECORE_RETENTION_KEEP"),
		"RETENTION_DRY_RUN":        os.Getenv("ROUTECORE_RETENTION_DRY_RUN"),
	}

	envUsed := false
	for _, v := range envs {
		if v != "" {
			envUsed = true
			break
		}
	}
	envCfg := &Config{}

	if v := envs["ADDR"]; v != "" {
		splitAddr(v, envCfg)
	} else {
		if host := envs["SERVER_ADDRESS"]; host != "" {
			envCfg.Server.Address = host
		}
		if port := envs["SERVER_PORT"]; port != "" {
			if pi, err := strconv.Atoi(port); err == nil {
				envCfg.Server.Port = pi
			}
		}
	}
	envCfg.Server.DBPath = envs["DB_PATH"]
	envCfg.Server.Transport = strings.ToLower(strings.TrimSpace(envs["TRANSPORT"]))
	if v, err := ParseSizeBytes(envs["MAX_BODY_SIZE"]); err == nil {
		envCfg.Server.MaxBodySize = v
	}
	if v, err := ParseDuration(envs["READ_TIMEOUT"]); err == nil {
		envCfg.Server.ReadTimeout = v
	}
	if v, err := ParseDuration(envs["WRITE_TIMEOUT"]); err == nil {
		envCfg.Server.WriteTimeout = v
	}
	envCfg.Server.TLS.CertFile = envs["TLS_CERT"]
	envCfg.Server.TLS.KeyFile = envs["TLS_KEY"]

	// routes
	envCfg.Routes.Manifest = envs["ROUTES_MANIFEST"]
	envCfg.Routes.IndexName = envs["ROUTES_INDEX_NAME"]
	envCfg.Routes.Rebuild = parseBool(envs["ROUTES_REBUILD"])
	envCfg.Routes.Save = parseBool(envs["ROUTES_SAVE"])

	// security
	envCfg.Security.CORS.AllowedOrigins = parseList(envs["CORS_ORIGINS"])
	if v := envs["RATE_RPS"]; v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envCfg.Security.RateLimit.RPS = f
		}
	}
	if v := envs["RATE_BURST"]; v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envCfg.Security.RateLimit.Burst = n
		}
	}
	envCfg.Security.IPWhitelist = parseList(envs["IP_WHITELIST"])
	envCfg.Security.APIKeys.Backend = parseList(envs["API_BACKEND_KEYS"])
	envCfg.Security.APIKeys.Frontend = parseList(envs["API_FRONTEND_KEYS"])
	envCfg.Security.APIKeys.Admin = parseList(envs["API_ADMIN_KEYS"])
	envCfg.Security.PublicPaths = parseList(envs["PUBLIC_PATHS"])

	// logging
	envCfg.Logging.Level = strings.TrimSpace(envs["LOG_LEVEL"])
	envCfg.Logging.Sink = strings.TrimSpace(envs["LOG_SINK"])
	envCfg.Logging.Format = strings.TrimSpace(envs["LOG_FORMAT"])

	// telemetry
	if v, err := ParseDuration(envs["TELEMETRY_SLOW_THRESHOLD"]); err == nil {
		envCfg.Telemetry.SlowThreshold = v
	}
	envCfg.Telemetry.MetricsNamespace = envs["METRICS_NAMESPACE"]
	envCfg.Telemetry.TraceDir = envs["TRACE_DIR"]
	envCfg.Telemetry.Compress.Enabled = parseBool(envs["COMPRESS_ENABLED"])
	if v, err := ParseSizeBytes(envs["COMPRESS_MIN_BYTES"]); err == nil {
		envCfg.Telemetry.Compress.MinBytes = v
	}
	envCfg.Telemetry.Sensor.Enabled = parseBool(envs["SENSOR_ENABLED"])
	if v, err := ParseDuration(envs["SENSOR_POLL_INTERVAL"]); err == nil {
		envCfg.Telemetry.Sensor.PollInterval = v
	}

	// retention
	envCfg.Retention.Enabled = parseBool(envs["RETENTION_ENABLED"])
	envCfg.Retention.Cron = envs["RETENTION_CRON"]
	if v := envs["RETENTION_KEEP"]; v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envCfg.Retention.Keep = n
		}
	}
	envCfg.Retention.DryRun = parseBool(envs["RETENTION_DRY_RUN"])

	return envCfg, envUsed
}

// decides which single source to use (flags, config file, or env) and returns the effective config plus resolved addr and dbPath. if --config is set, only the config file is used; otherwise flags if set; else config file if present; else env
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	if fileCfg == nil {
		fileCfg = &Config{}
	}
	if envCfg == nil {
		envCfg = &Config{}
	}

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		res = withFlagDefaults(fromConfig(fileCfg, "config"), flags)
		applyRoutesFlag(flags, res.Config)
		return res, nil
	}

	if flags.Set["addr"] || flags.Set["db"] || flags.Set["routes"] {
		addr := flags.Addr
		if !flags.Set["addr"] {
			addr = envCfg.Addr()
		}
		dbPath := flags.DB
		if !flags.Set["db"] {
			if p := strings.TrimSpace(envCfg.Server.DBPath); p != "" {
				dbPath = p
			} else if p := strings.TrimSpace(fileCfg.Server.DBPath); p != "" {
				dbPath = p
			}
		}
		out := *envCfg
		out.Server.Address, out.Server.Port = hostPort(addr)
		out.Server.DBPath = dbPath
		applyRoutesFlag(flags, &out)
		res.Config = &out
		res.Addr = out.Addr()
		res.DBPath = dbPath
		res.Source = "flags"
		return res, nil
	}

	if fileExists {
		return withFlagDefaults(fromConfig(fileCfg, "config"), flags), nil
	}
	return withFlagDefaults(fromConfig(envCfg, "env"), flags), nil
}

// fills an unset addr or db path from the flag defaults
func withFlagDefaults(res EffectiveConfigResult, flags Flags) EffectiveConfigResult {
	if res.DBPath == "" && flags.DB != "" {
		res.DBPath = flags.DB
		res.Config.Server.DBPath = flags.DB
	}
	if res.Config.Server.Address == "" && res.Config.Server.Port == 0 && flags.Addr != "" {
		res.Config.Server.Address, res.Config.Server.Port = hostPort(flags.Addr)
		res.Addr = res.Config.Addr()
	}
	return res
}

func fromConfig(c *Config, source string) EffectiveConfigResult {
	return EffectiveConfigResult{Config: c, Addr: c.Addr(), DBPath: c.Server.DBPath, Source: source}
}

func applyRoutesFlag(flags Flags, c *Config) {
	if flags.Set["routes"] {
		c.Routes.Manifest = flags.Routes
	}
}

// splits host:port; an empty host listens on all interfaces
func hostPort(a string) (string, int) {
	if a == "" {
		return "", 0
	}
	h, p, err := net.SplitHostPort(a)
	if err != nil {
		return a, 0
	}
	pi, _ := strconv.Atoi(p)
	return h, pi
}
