package main

import (
	"github.com/spf13/cobra"

	"routecore/internal/retention"
	"routecore/pkg/config"
)

func newPruneCmd(opts *rootOptions) *cobra.Command {
	var keep int
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots of every index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(opts)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg := config.RetentionConfig{Keep: keep, DryRun: dryRun}
			rep, err := retention.NewManager(cfg, st, "").RunImmediate(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd, opts.format, rep, func(p printer) {
				verb := "removed"
				if dryRun {
					verb = "would remove"
				}
				p("%s %d snapshots", verb, rep.Total())
				for name, versions := range rep.Pruned {
					for _, v := range versions {
						p("  %s@%s", name, v)
					}
				}
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 5, "Snapshots to keep per index")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without deleting")
	return cmd
}
