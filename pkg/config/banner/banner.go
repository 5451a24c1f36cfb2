package banner

import (
	"fmt"

	"routecore/pkg/config"
)

const banner = `
 ____             _        ____
|  _ \ ___  _   _| |_ ___ / ___|___  _ __ ___
| |_) / _ \| | | | __/ _ \ |   / _ \| '__/ _ \
|  _ < (_) | |_| | ||  __/ |__| (_) | | |  __/
|_| \_\___/ \__,_|\__\___|\____\___/|_|  \___|
`

// PrintWithEff prints the banner and a short readiness checklist for eff.
func PrintWithEff(eff config.EffectiveConfigResult, version string, routes int) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", addr)
	fmt.Printf("DB Path:   %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	fmt.Printf("Config:    %s\n", src)
	if eff.Config == nil {
		return
	}
	c := eff.Config
	fmt.Printf("Transport: %s\n", c.Server.Transport)
	fmt.Printf("Routes:    %d (index %q)\n", routes, c.Routes.IndexName)

	fmt.Println("\n== Production? =================================================")
	keys := len(c.Security.APIKeys.Backend) + len(c.Security.APIKeys.Frontend)
	if keys > 0 {
		fmt.Printf("- API keys: OK (%d)\n", keys)
	} else {
		fmt.Println("- API keys: none (every route is public)")
	}
	if n := len(c.Security.APIKeys.Admin); n > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", n)
	} else {
		fmt.Println("- Admin API keys: MISSING (/routes is open)")
	}
	if c.Server.TLS.CertFile != "" {
		fmt.Println("- TLS: enabled")
	} else {
		fmt.Println("- TLS: disabled")
	}
	if c.Retention.Enabled {
		fmt.Printf("- Retention: enabled (cron=%s keep=%d)\n", c.Retention.Cron, c.Retention.Keep)
	} else {
		fmt.Println("- Retention: disabled")
	}
	fmt.Println()
}
