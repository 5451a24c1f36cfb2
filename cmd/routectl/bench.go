package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"routecore/internal/bench"
	"routecore/pkg/httpx"
)

func newBenchCmd(opts *rootOptions) *cobra.Command {
	cfg := bench.Config{}
	var method string
	cmd := &cobra.Command{
		Use:   "bench URL",
		Short: "Send requests at a fixed rate and report latencies",
		Example: `  routectl bench http://localhost:8080/hello?name=bench --rps 500 --duration 30s
  routectl bench http://localhost:8080/echo --method POST --body '{"a":1}' --key sk_example`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := httpx.ParseMethod(strings.ToUpper(method))
			if err != nil {
				return err
			}
			cfg.URL = args[0]
			cfg.Method = m.String()
			res, err := bench.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return output(cmd, opts.format, res, func(p printer) {
				p("requests: %s (%s ok, %s failed) in %s",
					humanize.Comma(res.TotalRequests), humanize.Comma(res.SuccessCount),
					humanize.Comma(res.FailCount), res.Elapsed.Round(time.Millisecond))
				p("latency:  avg %s  min %s  p50 %s  p90 %s  p99 %s  max %s",
					res.Avg, res.Min, res.P50, res.P90, res.P99, res.Max)
				p("traffic:  %s sent, %s received", humanize.Bytes(uint64(res.BytesSent)), humanize.Bytes(uint64(res.BytesReceived)))
				if res.FinalRPS != cfg.RPS {
					p("throttled to %d rps", res.FinalRPS)
				}
				codes := make([]int, 0, len(res.StatusCodes))
				for c := range res.StatusCodes {
					codes = append(codes, c)
				}
				sort.Ints(codes)
				parts := make([]string, 0, len(codes))
				for _, c := range codes {
					parts = append(parts, fmt.Sprintf("%d=%d", c, res.StatusCodes[c]))
				}
				p("status:   %s", strings.Join(parts, " "))
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method")
	cmd.Flags().StringVar(&cfg.Body, "body", "", "Request body")
	cmd.Flags().StringVar(&cfg.APIKey, "key", "", "API key sent as a bearer token")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 100, "Requests per second")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 10*time.Second, "How long to run")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "Per-request timeout")
	return cmd
}
