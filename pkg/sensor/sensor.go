// Package sensor watches disk usage of the database volume and heap usage,
// and raises alerts that readiness probes and metrics report.
package sensor

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"routecore/pkg/config"
	"routecore/pkg/logger"
)

// Config holds the thresholds, in percent.
type Config struct {
	PollInterval   time.Duration
	DiskHighPct    int
	DiskLowPct     int
	MemHighPct     int
	RecoveryWindow time.Duration
}

// FromConfig converts the yaml section.
func FromConfig(c config.SensorConfig) Config {
	return Config{
		PollInterval:   c.PollInterval.Duration(),
		DiskHighPct:    c.DiskHighPct,
		DiskLowPct:     c.DiskLowPct,
		MemHighPct:     c.MemHighPct,
		RecoveryWindow: c.RecoveryWindow.Duration(),
	}
}

// Status is the last reading.
type Status struct {
	DiskUsedPct float64 `json:"disk_used_pct"`
	MemUsedPct  float64 `json:"mem_used_pct"`
	DiskAlert   bool    `json:"disk_alert"`
	MemAlert    bool    `json:"mem_alert"`
}

// Degraded reports whether any alert is raised.
func (s Status) Degraded() bool { return s.DiskAlert || s.MemAlert }

type Sensor struct {
	cfg      Config
	path     string
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.Mutex
	status        Status
	lastDiskAlert time.Time
	lastMemAlert  time.Time

	now     func() time.Time
	diskPct func(path string) (float64, error)
	memPct  func() float64
}

// New returns a sensor for the volume holding path.
func New(cfg Config, path string) *Sensor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &Sensor{
		cfg:     cfg,
		path:    path,
		stopCh:  make(chan struct{}),
		now:     time.Now,
		diskPct: diskUsedPct,
		memPct:  heapUsedPct,
	}
}

// Start polls until Stop. The first reading is taken immediately.
func (s *Sensor) Start() {
	s.check()
	s.wg.Add(1)
	go s.run()
}

// Stop ends polling. Safe to call more than once.
func (s *Sensor) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Status returns the last reading.
func (s *Sensor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Register exposes the readings as gauges on reg.
func (s *Sensor) Register(reg prometheus.Registerer, namespace string) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "disk_used_percent",
			Help: "Used space on the database volume.",
		}, func() float64 { return s.Status().DiskUsedPct }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "heap_used_percent",
			Help: "Heap in use relative to heap obtained from the OS.",
		}, func() float64 { return s.Status().MemUsedPct }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "degraded",
			Help: "1 while a disk or memory alert is raised.",
		}, func() float64 {
			if s.Status().Degraded() {
				return 1
			}
			return 0
		}),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sensor) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.check()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sensor) check() {
	now := s.now()
	disk, err := s.diskPct(s.path)
	mem := s.memPct()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logger.Warn("sensor_disk_stat_failed", "path", s.path, "error", err)
	} else {
		s.status.DiskUsedPct = disk
		switch {
		case disk > float64(s.cfg.DiskHighPct):
			if !s.status.DiskAlert {
				logger.Warn("disk_usage_high", "used_pct", disk, "threshold", s.cfg.DiskHighPct)
				s.status.DiskAlert = true
			}
			s.lastDiskAlert = now
		case s.status.DiskAlert && disk < float64(s.cfg.DiskLowPct) && now.Sub(s.lastDiskAlert) >= s.cfg.RecoveryWindow:
			logger.Info("disk_usage_recovered", "used_pct", disk, "threshold", s.cfg.DiskLowPct)
			s.status.DiskAlert = false
		}
	}

	s.status.MemUsedPct = mem
	switch {
	case mem > float64(s.cfg.MemHighPct):
		if !s.status.MemAlert {
			logger.Warn("memory_usage_high", "used_pct", mem, "threshold", s.cfg.MemHighPct)
			s.status.MemAlert = true
		}
		s.lastMemAlert = now
	case s.status.MemAlert && now.Sub(s.lastMemAlert) >= s.cfg.RecoveryWindow:
		logger.Info("memory_usage_recovered", "used_pct", mem)
		s.status.MemAlert = false
	}
}

func diskUsedPct(path string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	total := st.Blocks * uint64(st.Bsize)
	if total == 0 {
		return 0, nil
	}
	avail := st.Bavail * uint64(st.Bsize)
	return float64(total-avail) / float64(total) * 100, nil
}

func heapUsedPct() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapSys == 0 {
		return 0
	}
	return float64(m.HeapInuse) / float64(m.HeapSys) * 100
}
