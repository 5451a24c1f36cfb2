package config

import (
	"fmt"
	"os"
	"time"

	"github.com/adhocore/gronx"
)

const (
	defaultTransport     = "fasthttp"
	defaultIndexName     = "default"
	defaultMaxBodySize   = 4 * 1024 * 1024 // 4 MiB
	defaultReadTimeout   = 10 * time.Second
	defaultWriteTimeout  = 10 * time.Second
	defaultIdleTimeout   = 30 * time.Second
	defaultRateRPS       = 100
	defaultRateBurst     = 100
	defaultSlowThreshold = 200 * time.Millisecond
	defaultMetricsNS     = "routecore"
	defaultCompressMin   = 1024
	defaultRetentionCron = "0 3 * * *" // daily at 03:00
	defaultRetentionKeep = 5
	defaultSensorPoll    = 30 * time.Second
	defaultDiskHighPct   = 90
	defaultDiskLowPct    = 80
	defaultMemHighPct    = 90
	defaultSensorRecover = 5 * time.Minute
)

// ValidateConfig fills defaults and fails fast on values that cannot work.
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, ROUTECORE_DB_PATH env, or server.db_path in config")
	}
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = eff.DBPath
	}

	// TLS cert/key presence check if one is set
	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	switch cfg.Server.Transport {
	case "":
		cfg.Server.Transport = defaultTransport
	case "fasthttp", "nethttp":
	default:
		return fmt.Errorf("invalid server.transport %q: want fasthttp or nethttp", cfg.Server.Transport)
	}
	if cfg.Server.MaxBodySize <= 0 {
		cfg.Server.MaxBodySize = SizeBytes(defaultMaxBodySize)
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = Duration(defaultReadTimeout)
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = Duration(defaultWriteTimeout)
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = Duration(defaultIdleTimeout)
	}

	if cfg.Routes.IndexName == "" {
		cfg.Routes.IndexName = defaultIndexName
	}
	if m := cfg.Routes.Manifest; m != "" {
		if _, err := os.Stat(m); err != nil {
			return fmt.Errorf("route manifest not accessible: %w", err)
		}
	}

	if cfg.Security.RateLimit.RPS <= 0 {
		cfg.Security.RateLimit.RPS = defaultRateRPS
	}
	if cfg.Security.RateLimit.Burst <= 0 {
		cfg.Security.RateLimit.Burst = defaultRateBurst
	}

	if cfg.Telemetry.SlowThreshold <= 0 {
		cfg.Telemetry.SlowThreshold = Duration(defaultSlowThreshold)
	}
	if cfg.Telemetry.MetricsNamespace == "" {
		cfg.Telemetry.MetricsNamespace = defaultMetricsNS
	}
	if cfg.Telemetry.Compress.MinBytes <= 0 {
		cfg.Telemetry.Compress.MinBytes = SizeBytes(defaultCompressMin)
	}

	sc := &cfg.Telemetry.Sensor
	if sc.PollInterval <= 0 {
		sc.PollInterval = Duration(defaultSensorPoll)
	}
	if sc.DiskHighPct <= 0 {
		sc.DiskHighPct = defaultDiskHighPct
	}
	if sc.DiskLowPct <= 0 {
		sc.DiskLowPct = defaultDiskLowPct
	}
	if sc.DiskLowPct > sc.DiskHighPct {
		return fmt.Errorf("telemetry.sensor.disk_low_pct (%d) must not exceed disk_high_pct (%d)", sc.DiskLowPct, sc.DiskHighPct)
	}
	if sc.MemHighPct <= 0 {
		sc.MemHighPct = defaultMemHighPct
	}
	if sc.RecoveryWindow <= 0 {
		sc.RecoveryWindow = Duration(defaultSensorRecover)
	}

	if cfg.Retention.Cron == "" {
		cfg.Retention.Cron = defaultRetentionCron
	}
	if !gronx.New().IsValid(cfg.Retention.Cron) {
		return fmt.Errorf("invalid retention.cron %q: not a valid cron expression", cfg.Retention.Cron)
	}
	if cfg.Retention.Keep <= 0 {
		cfg.Retention.Keep = defaultRetentionKeep
	}
	return nil
}
