// Package bench drives a fixed request rate against a running server and
// summarizes latencies and status codes.
package bench

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"routecore/pkg/logger"
)

// Config describes one run.
type Config struct {
	URL      string
	Method   string
	Body     string
	APIKey   string
	RPS      int
	Duration time.Duration
	Timeout  time.Duration
	Client   *http.Client
}

// Result summarizes a run.
type Result struct {
	TotalRequests int64         `json:"total_requests"`
	SuccessCount  int64         `json:"success_count"`
	FailCount     int64         `json:"fail_count"`
	Avg           time.Duration `json:"avg_ns"`
	Min           time.Duration `json:"min_ns"`
	Max           time.Duration `json:"max_ns"`
	P50           time.Duration `json:"p50_ns"`
	P90           time.Duration `json:"p90_ns"`
	P99           time.Duration `json:"p99_ns"`
	StatusCodes   map[int]int64 `json:"status_codes"`
	BytesSent     int64         `json:"bytes_sent"`
	BytesReceived int64         `json:"bytes_received"`
	FinalRPS      int           `json:"final_rps"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}

type recorder struct {
	total, success, fail atomic.Int64
	sent, received       atomic.Int64

	mu        sync.Mutex
	durations []time.Duration
	codes     map[int]int64
}

func (r *recorder) record(status int, d time.Duration, sent, received int64) {
	r.total.Add(1)
	r.sent.Add(sent)
	r.received.Add(received)
	if status >= 200 && status < 400 {
		r.success.Add(1)
	} else {
		r.fail.Add(1)
	}
	r.mu.Lock()
	r.durations = append(r.durations, d)
	r.codes[status]++
	r.mu.Unlock()
}

// Run sends requests at cfg.RPS until cfg.Duration passes or ctx is done.
// When more than one in ten requests fail the rate is halved.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.URL == "" {
		return Result{}, fmt.Errorf("bench: url is required")
	}
	if cfg.RPS <= 0 {
		return Result{}, fmt.Errorf("bench: rps must be positive, got %d", cfg.RPS)
	}
	if cfg.Duration <= 0 {
		return Result{}, fmt.Errorf("bench: duration must be positive")
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	rec := &recorder{codes: make(map[int]int64)}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	start := time.Now()
	rps := cfg.RPS
	ticker := time.NewTicker(time.Second / time.Duration(rps))
	defer ticker.Stop()

	var wg sync.WaitGroup
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			total, fail := rec.total.Load(), rec.fail.Load()
			if total > 10 && fail*10 > total && rps > 1 {
				rps /= 2
				ticker.Reset(time.Second / time.Duration(rps))
				logger.Warn("bench_throttled", "rps", rps, "failed", fail, "total", total)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				send(client, cfg, rec)
			}()
		}
	}
	wg.Wait()
	return summarize(rec, rps, time.Since(start)), nil
}

func send(client *http.Client, cfg Config, rec *recorder) {
	var body io.Reader
	if cfg.Body != "" {
		body = strings.NewReader(cfg.Body)
	}
	req, err := http.NewRequest(cfg.Method, cfg.URL, body)
	if err != nil {
		rec.record(0, 0, 0, 0)
		return
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	if cfg.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	begin := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rec.record(0, time.Since(begin), int64(len(cfg.Body)), 0)
		return
	}
	n, _ := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	rec.record(resp.StatusCode, time.Since(begin), int64(len(cfg.Body)), n)
}

func summarize(rec *recorder, rps int, elapsed time.Duration) Result {
	rec.mu.Lock()
	durations := append([]time.Duration(nil), rec.durations...)
	codes := make(map[int]int64, len(rec.codes))
	for k, v := range rec.codes {
		codes[k] = v
	}
	rec.mu.Unlock()

	res := Result{
		TotalRequests: rec.total.Load(),
		SuccessCount:  rec.success.Load(),
		FailCount:     rec.fail.Load(),
		StatusCodes:   codes,
		BytesSent:     rec.sent.Load(),
		BytesReceived: rec.received.Load(),
		FinalRPS:      rps,
		Elapsed:       elapsed,
	}
	if len(durations) == 0 {
		return res
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	res.Avg = sum / time.Duration(len(durations))
	res.Min = durations[0]
	res.Max = durations[len(durations)-1]
	res.P50 = percentile(durations, 0.50)
	res.P90 = percentile(durations, 0.90)
	res.P99 = percentile(durations, 0.99)
	return res
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, q float64) time.Duration {
	i := int(float64(len(sorted)) * q)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}
