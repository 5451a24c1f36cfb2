package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"routecore/pkg/logger"
)

const leaseTTL = 10 * time.Minute

// Pruner is the part of the snapshot store retention needs.
type Pruner interface {
	IndexNames() ([]string, error)
	PruneIndex(name string, keep int, dryRun bool) ([]string, error)
}

// Report describes one retention run.
type Report struct {
	RunID  string              `json:"run_id"`
	DryRun bool                `json:"dry_run"`
	Pruned map[string][]string `json:"pruned"`
	// Skipped is set when another process held the lease.
	Skipped bool `json:"skipped,omitempty"`
}

// Total is the number of snapshots removed (or that would be, on a dry run).
func (r Report) Total() int {
	n := 0
	for _, v := range r.Pruned {
		n += len(v)
	}
	return n
}

// runOnce takes the lease and prunes every index name down to keep
// snapshots.
func runOnce(ctx context.Context, p Pruner, keep int, dryRun bool, leaseDir string) (Report, error) {
	rep := Report{RunID: uuid.NewString(), DryRun: dryRun, Pruned: map[string][]string{}}

	if leaseDir != "" {
		lock := newFileLease(leaseDir)
		acq, err := lock.Acquire(rep.RunID, leaseTTL)
		if err != nil {
			return rep, fmt.Errorf("lease acquire failed: %w", err)
		}
		if !acq {
			rep.Skipped = true
			return rep, nil
		}
		defer func() {
			if err := lock.Release(rep.RunID); err != nil {
				logger.Error("retention_lease_release_error", "error", err)
			}
		}()
	}

	logger.Info("retention_run_start", "run_id", rep.RunID, "keep", keep, "dry_run", dryRun)
	names, err := p.IndexNames()
	if err != nil {
		return rep, fmt.Errorf("list index names: %w", err)
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		removed, err := p.PruneIndex(name, keep, dryRun)
		if err != nil {
			logger.Error("retention_prune_failed", "run_id", rep.RunID, "name", name, "error", err)
			return rep, fmt.Errorf("prune %q: %w", name, err)
		}
		if len(removed) > 0 {
			rep.Pruned[name] = removed
			logger.Info("retention_index_pruned", "run_id", rep.RunID, "name", name, "count", len(removed), "dry_run", dryRun)
		}
	}
	logger.Info("retention_run_complete", "run_id", rep.RunID, "scanned", len(names), "pruned", rep.Total())
	return rep, nil
}
