package main

import (
	"os"

	"github.com/spf13/cobra"

	"routecore/internal/handlers"
	"routecore/pkg/auth"
	"routecore/pkg/logger"
	"routecore/pkg/registry"
	"routecore/pkg/routing"
	"routecore/pkg/store"
	"routecore/pkg/telemetry"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	db       string
	name     string
	format   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "routectl",
		Short: "routectl - build and inspect route index snapshots",
		Long: `routectl builds route indexes from a manifest, stores them as versioned
snapshots in the routecore database, and inspects, prunes and queries them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.InitWriter(cmd.ErrOrStderr(), opts.logLevel)
		},
	}
	cmd.SetVersionTemplate("routectl version {{.Version}}\n")

	defaultDB := os.Getenv("ROUTECORE_DB_PATH")
	if defaultDB == "" {
		defaultDB = "./.database"
	}
	cmd.PersistentFlags().StringVar(&opts.db, "db", defaultDB, "Database path (the store lives under <db>/store)")
	cmd.PersistentFlags().StringVar(&opts.name, "name", "default", "Index name")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "human", "Output format (json, human)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	cmd.AddCommand(
		newBuildCmd(opts),
		newInspectCmd(opts),
		newPruneCmd(opts),
		newLookupCmd(opts),
		newMigrateCmd(opts),
		newBenchCmd(opts),
	)
	return cmd
}

// newRegistry registers the built-ins the server registers, so refs resolve
// the same way in both binaries.
func newRegistry() (*registry.Registry, func()) {
	gw := auth.NewGateway(auth.SecConfig{})
	reg := handlers.Register(registry.New(), handlers.Deps{
		Version: version,
		Gateway: gw,
		Metrics: telemetry.NewMetrics("routectl", 0),
		Index:   func() routing.Index { return nil },
	})
	return reg, gw.Close
}

func openStore(opts *rootOptions) (*store.Store, error) {
	return store.Open(storePath(opts.db))
}
