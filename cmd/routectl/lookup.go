package main

import (
	"github.com/spf13/cobra"

	"routecore/pkg/httpx"
	"routecore/pkg/routing"
)

type lookupResult struct {
	Method     httpx.Method `json:"method"`
	Path       string       `json:"path"`
	Version    string       `json:"version"`
	Handler    string       `json:"handler"`
	Middleware []string     `json:"middleware"`
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup METHOD PATH",
		Short: "Resolve a request against the newest snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := httpx.ParseMethod(args[0])
			if err != nil {
				return err
			}
			st, err := openStore(opts)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.LatestIndex(opts.name)
			if err != nil {
				return err
			}
			reg, closeReg := newRegistry()
			defer closeReg()
			table := routing.NewHashmap(reg)
			if err := table.Init(snap.Index); err != nil {
				return err
			}
			res, err := table.GetRoute(method, args[1])
			if err != nil {
				return err
			}

			out := lookupResult{
				Method:     method,
				Path:       args[1],
				Version:    snap.Version,
				Handler:    res.Endpoint.Handler().String(),
				Middleware: []string{},
			}
			for _, m := range res.Endpoint.Middleware() {
				out.Middleware = append(out.Middleware, m.String())
			}
			return output(cmd, opts.format, out, func(p printer) {
				p("%s %s -> %s", out.Method, out.Path, out.Handler)
				for i, m := range out.Middleware {
					p("  %d. %s", i+1, m)
				}
			})
		},
	}
}
