package main

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"routecore/pkg/store"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var ver string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List snapshots, or show one snapshot's routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(opts)
			if err != nil {
				return err
			}
			defer st.Close()

			if ver == "" {
				versions, err := st.ListIndexVersions(opts.name)
				if err != nil {
					return err
				}
				return output(cmd, opts.format, versions, func(p printer) {
					if len(versions) == 0 {
						p("no snapshots for %s", opts.name)
						return
					}
					for _, v := range versions {
						p("%s  %-3d routes  %-8s  %s", v.Version, v.Routes, humanize.Bytes(uint64(v.Size)), humanize.RelTime(v.CreatedAt, time.Now(), "ago", "from now"))
					}
				})
			}

			var snap store.Snapshot
			if ver == "latest" {
				snap, err = st.LatestIndex(opts.name)
			} else {
				snap, err = st.GetIndex(opts.name, ver)
			}
			if err != nil {
				return err
			}
			entries := snap.Index.Entries()
			return output(cmd, opts.format, snap, func(p printer) {
				p("%s@%s (%d routes)", snap.Name, snap.Version, snap.Routes)
				for _, e := range entries {
					p("%-7s %-30s %s", e.Method, e.Path, e.Endpoint)
				}
			})
		},
	}
	cmd.Flags().StringVar(&ver, "version", "", "Snapshot version to show; use \"latest\" for the newest")
	return cmd
}
