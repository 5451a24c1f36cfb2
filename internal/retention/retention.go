// Package retention prunes old route index snapshots on a cron schedule.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"routecore/pkg/config"
	"routecore/pkg/logger"
)

// Manager runs retention on cfg.Cron until its context ends.
type Manager struct {
	cfg      config.RetentionConfig
	store    Pruner
	leaseDir string
	now      func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewManager returns an idle manager. leaseDir may be empty to skip the
// cross-process lease.
func NewManager(cfg config.RetentionConfig, store Pruner, leaseDir string) *Manager {
	return &Manager{cfg: cfg, store: store, leaseDir: leaseDir, now: time.Now}
}

// Start launches the schedule loop when retention is enabled. The returned
// cancel stops it.
func Start(ctx context.Context, cfg config.RetentionConfig, store Pruner, leaseDir string) (*Manager, context.CancelFunc, error) {
	m := NewManager(cfg, store, leaseDir)
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return m, func() {}, nil
	}
	if !gronx.New().IsValid(cfg.Cron) {
		return nil, nil, &InvalidCronError{Cron: cfg.Cron}
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	logger.Info("retention_enabled", "cron", cfg.Cron, "keep", cfg.Keep, "dry_run", cfg.DryRun)
	go m.scheduleLoop()
	return m, m.stop, nil
}

// InvalidCronError reports an unparseable schedule.
type InvalidCronError struct{ Cron string }

func (e *InvalidCronError) Error() string { return "invalid retention cron: " + e.Cron }

func (m *Manager) stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// RunImmediate runs one retention pass now, outside the schedule.
func (m *Manager) RunImmediate(ctx context.Context) (Report, error) {
	return runOnce(ctx, m.store, m.cfg.Keep, m.cfg.DryRun, m.leaseDir)
}

// NextRun returns when the schedule fires next after ref.
func (m *Manager) NextRun(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(m.cfg.Cron, ref, false)
}

func (m *Manager) scheduleLoop() {
	defer close(m.done)
	for {
		next, err := m.NextRun(m.now())
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", m.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-m.ctx.Done():
				return
			}
			continue
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			m.runJob()
		case <-m.ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (m *Manager) runJob() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	if _, err := m.RunImmediate(m.ctx); err != nil {
		logger.Error("retention_run_error", "error", err)
	}
}
