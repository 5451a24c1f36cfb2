// Package progressor upgrades the on-disk store format. The format version
// lives under a system key; each migration is idempotent so an interrupted
// run is simply repeated on the next start.
package progressor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"routecore/pkg/logger"
	"routecore/pkg/store"
	"routecore/pkg/store/keys"
)

// CurrentFormat is the store format this build writes.
const CurrentFormat = 2

// legacyFormat is assumed for stores that hold snapshots but no version key.
const legacyFormat = 1

type migration struct {
	to int
	fn func(ctx context.Context, st *store.Store) error
}

var migrations = []migration{
	{to: 2, fn: backfillSnapshotInfo},
}

// backfillSnapshotInfo fills the route count and creation time of snapshots
// written before those fields existed.
func backfillSnapshotInfo(ctx context.Context, st *store.Store) error {
	n, err := st.RewriteSnapshots(func(s *store.Snapshot) bool {
		if ctx.Err() != nil {
			return false
		}
		changed := false
		if s.Routes == 0 && s.Index.Len() > 0 {
			s.Routes = s.Index.Len()
			changed = true
		}
		if s.CreatedAt.IsZero() {
			if ts, err := keys.ParseIndexVersion(s.Version); err == nil {
				s.CreatedAt = ts
				changed = true
			}
		}
		return changed
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("migration_snapshots_backfilled", "count", n)
	return nil
}

// StoredFormat returns the format recorded in st. A store without the key
// is new when it holds no snapshots and legacy otherwise.
func StoredFormat(st *store.Store) (int, error) {
	v, err := st.GetKey(keys.SystemVersionKey)
	if err == nil {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return 0, fmt.Errorf("malformed store format %q", v)
		}
		return n, nil
	}
	if !store.IsNotFound(err) {
		logger.Error("progressor_read_version_failed", "error", err)
		return 0, err
	}
	names, err := st.IndexNames()
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return CurrentFormat, nil
	}
	return legacyFormat, nil
}

// Run brings st to CurrentFormat. It reports whether anything was migrated.
// A store newer than this build is an error.
func Run(ctx context.Context, st *store.Store) (bool, error) {
	stored, err := StoredFormat(st)
	if err != nil {
		return false, err
	}
	if stored > CurrentFormat {
		return false, fmt.Errorf("store format %d is newer than supported format %d", stored, CurrentFormat)
	}
	if _, err := st.GetKey(keys.SystemInProgressKey); err == nil {
		logger.Warn("progressor_resume", "from", stored)
	}

	ran := false
	for _, m := range migrations {
		if m.to <= stored {
			continue
		}
		if err := startMigration(st, stored, m.to); err != nil {
			return ran, err
		}
		logger.Info("migration_start", "from", stored, "to", m.to)
		if err := m.fn(ctx, st); err != nil {
			logger.Error("progressor_migration_handler_failed", "from", stored, "to", m.to, "error", err)
			return ran, err
		}
		if err := finishMigration(st, m.to); err != nil {
			return ran, err
		}
		stored, ran = m.to, true
	}
	if !ran {
		// stamp new stores so later builds know their format
		if _, err := st.GetKey(keys.SystemVersionKey); store.IsNotFound(err) {
			return false, st.SaveKey(keys.SystemVersionKey, []byte(strconv.Itoa(stored)))
		}
	}
	return ran, nil
}

func startMigration(st *store.Store, from, to int) error {
	marker := map[string]any{"from": from, "to": to, "started_at": time.Now().UTC().Format(time.RFC3339)}
	mb, _ := json.Marshal(marker)
	if err := st.SaveKey(keys.SystemInProgressKey, mb); err != nil {
		logger.Error("progressor_write_inprogress_failed", "error", err)
		return fmt.Errorf("failed to write in-progress marker: %w", err)
	}
	return nil
}

func finishMigration(st *store.Store, to int) error {
	if err := st.SaveKey(keys.SystemVersionKey, []byte(strconv.Itoa(to))); err != nil {
		logger.Error("progressor_persist_version_failed", "version", to, "error", err)
		return fmt.Errorf("failed to persist new version: %w", err)
	}
	if err := st.DeleteKey(keys.SystemInProgressKey); err != nil {
		logger.Error("progressor_delete_inprogress_failed", "error", err)
	}
	logger.Info("progressor_version_persisted", "version", to)
	return nil
}
