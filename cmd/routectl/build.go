package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"routecore/internal/app"
	"routecore/pkg/config"
	"routecore/pkg/progressor"
	"routecore/pkg/routing"
)

type buildResult struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Routes   int    `json:"routes"`
	Size     int    `json:"size,omitempty"`
	Manifest string `json:"manifest"`
	DryRun   bool   `json:"dry_run"`
}

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var manifestPath string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build and store a route index snapshot",
		Long: `Build validates every route of a manifest against the built-in handlers and
middleware and stores the result as a new snapshot. Servers load the newest
snapshot at startup without validating it again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, closeReg := newRegistry()
			defer closeReg()

			st, err := openStore(opts)
			if err != nil {
				return err
			}
			defer st.Close()
			if _, err := progressor.Run(cmd.Context(), st); err != nil {
				return err
			}

			rc := config.RoutesConfig{
				Manifest:  manifestPath,
				IndexName: opts.name,
				Rebuild:   true,
				Save:      !dryRun,
			}
			idx, src, err := app.LoadIndex(st, reg, routing.NewIndexBuilder(), rc)
			if err != nil {
				return err
			}
			res := buildResult{
				Name:     opts.name,
				Version:  src.Version,
				Routes:   idx.Len(),
				Manifest: src.Manifest,
				DryRun:   dryRun,
			}
			if !dryRun {
				snap, err := st.GetIndex(opts.name, src.Version)
				if err != nil {
					return err
				}
				res.Size = snapshotSize(snap)
			}
			return output(cmd, opts.format, res, func(p printer) {
				if dryRun {
					p("manifest %s is valid: %d routes", res.Manifest, res.Routes)
					return
				}
				p("stored %s@%s: %d routes (%s)", res.Name, res.Version, res.Routes, humanize.Bytes(uint64(res.Size)))
			})
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Route manifest (default: built-in routes)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate only, do not store")
	return cmd
}
