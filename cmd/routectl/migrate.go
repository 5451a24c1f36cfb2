package main

import (
	"github.com/spf13/cobra"

	"routecore/pkg/progressor"
)

type migrateResult struct {
	From     int  `json:"from"`
	To       int  `json:"to"`
	Migrated bool `json:"migrated"`
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the store to the current format",
		Long: `Migrate rewrites stored snapshots written by older builds. Servers run the
same migrations at startup; use --check to see the stored format without
changing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(opts)
			if err != nil {
				return err
			}
			defer st.Close()

			from, err := progressor.StoredFormat(st)
			if err != nil {
				return err
			}
			res := migrateResult{From: from, To: from}
			if !check {
				if res.Migrated, err = progressor.Run(cmd.Context(), st); err != nil {
					return err
				}
				res.To = progressor.CurrentFormat
			}
			return output(cmd, opts.format, res, func(p printer) {
				switch {
				case check:
					p("store format %d (current %d)", res.From, progressor.CurrentFormat)
				case res.Migrated:
					p("migrated store format %d -> %d", res.From, res.To)
				default:
					p("store format %d is current", res.To)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Report the stored format only")
	return cmd
}
