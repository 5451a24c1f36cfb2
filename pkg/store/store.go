// Package store persists route index snapshots in pebble so a builder can
// hand a validated index to any number of server processes.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"routecore/pkg/logger"
	"routecore/pkg/routing"
	"routecore/pkg/store/keys"
)

var (
	ErrNoSnapshot = errors.New("no index snapshot")
	ErrClosed     = errors.New("store is closed")
)

// Snapshot is one stored version of a named route index.
type Snapshot struct {
	Name      string        `json:"name"`
	Version   string        `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Routes    int           `json:"routes"`
	Index     routing.Index `json:"index"`
}

// SnapshotInfo is a Snapshot without the index body.
type SnapshotInfo struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Routes    int       `json:"routes"`
	Size      int       `json:"size"`
}

type Store struct {
	db   atomic.Pointer[pebble.DB]
	path string
	// small counter to avoid key collisions on nanosecond timestamp
	seq atomic.Uint64
	now func() time.Time
}

// Open opens or creates the pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	s := &Store{path: path, now: time.Now}
	s.db.Store(db)
	return s, nil
}

// Close closes the database. Safe to call twice.
func (s *Store) Close() error {
	db := s.db.Swap(nil)
	if db == nil {
		return nil
	}
	return db.Close()
}

// Ready reports whether the database is open.
func (s *Store) Ready() bool { return s != nil && s.db.Load() != nil }

func (s *Store) Path() string { return s.path }

func (s *Store) handle() (*pebble.DB, error) {
	db := s.db.Load()
	if db == nil {
		return nil, ErrClosed
	}
	return db, nil
}

// SaveIndex writes idx as a new version of name.
func (s *Store) SaveIndex(name string, idx routing.Index) (SnapshotInfo, error) {
	if err := keys.ValidateName(name); err != nil {
		return SnapshotInfo{}, err
	}
	if err := idx.Check(); err != nil {
		return SnapshotInfo{}, err
	}
	db, err := s.handle()
	if err != nil {
		return SnapshotInfo{}, err
	}
	now := s.now().UTC()
	snap := Snapshot{
		Name:      name,
		Version:   keys.GenIndexVersion(now, s.seq.Add(1)),
		CreatedAt: now,
		Routes:    idx.Len(),
		Index:     idx,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return SnapshotInfo{}, err
	}
	key := keys.GenIndexSnapshotKey(name, snap.Version)
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		return SnapshotInfo{}, fmt.Errorf("save index %s: %w", name, err)
	}
	logger.Info("index_snapshot_saved", "name", name, "version", snap.Version, "routes", snap.Routes)
	return snap.info(len(data)), nil
}

// LatestIndex returns the newest snapshot of name.
func (s *Store) LatestIndex(name string) (Snapshot, error) {
	db, err := s.handle()
	if err != nil {
		return Snapshot{}, err
	}
	prefix := []byte(keys.GenIndexSnapshotPrefix(name))
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return Snapshot{}, err
	}
	defer it.Close()
	if !it.Last() {
		if err := it.Error(); err != nil {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoSnapshot, name)
	}
	return decode(it.Value())
}

// GetIndex returns one specific version.
func (s *Store) GetIndex(name, version string) (Snapshot, error) {
	db, err := s.handle()
	if err != nil {
		return Snapshot{}, err
	}
	v, closer, err := db.Get([]byte(keys.GenIndexSnapshotKey(name, version)))
	if errors.Is(err, pebble.ErrNotFound) {
		return Snapshot{}, fmt.Errorf("%w: %s@%s", ErrNoSnapshot, name, version)
	}
	if err != nil {
		return Snapshot{}, err
	}
	defer closer.Close()
	return decode(v)
}

// ListIndexVersions returns every readable version of name, oldest first.
// Corrupt snapshots are logged and left out.
func (s *Store) ListIndexVersions(name string) ([]SnapshotInfo, error) {
	out, corrupt, err := s.scanVersions(name)
	for _, v := range corrupt {
		logger.Warn("index_snapshot_corrupt", "name", name, "version", v)
	}
	return out, err
}

// scanVersions splits the snapshots of name into readable ones and the
// versions of those that fail to decode.
func (s *Store) scanVersions(name string) ([]SnapshotInfo, []string, error) {
	db, err := s.handle()
	if err != nil {
		return nil, nil, err
	}
	prefix := []byte(keys.GenIndexSnapshotPrefix(name))
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()
	var out []SnapshotInfo
	var corrupt []string
	for it.First(); it.Valid(); it.Next() {
		snap, err := decode(it.Value())
		if err != nil {
			_, version, kerr := keys.ParseIndexSnapshotKey(string(it.Key()))
			if kerr != nil {
				return nil, nil, fmt.Errorf("bad snapshot key %q: %w", it.Key(), kerr)
			}
			corrupt = append(corrupt, version)
			continue
		}
		out = append(out, snap.info(len(it.Value())))
	}
	return out, corrupt, it.Error()
}

// IndexNames lists every index name with at least one snapshot.
func (s *Store) IndexNames() ([]string, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	prefix := []byte(keys.IndexRootPrefix)
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var names []string
	for it.First(); it.Valid(); it.Next() {
		name, _, err := keys.ParseIndexSnapshotKey(string(it.Key()))
		if err != nil {
			continue
		}
		if len(names) == 0 || names[len(names)-1] != name {
			names = append(names, name)
		}
	}
	return names, it.Error()
}

// PruneIndex deletes all but the newest keep readable versions of name,
// plus every corrupt one, and returns the versions removed. With dryRun
// nothing is deleted.
func (s *Store) PruneIndex(name string, keep int, dryRun bool) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	versions, corrupt, err := s.scanVersions(name)
	if err != nil {
		return nil, err
	}
	var stale []SnapshotInfo
	if len(versions) > keep {
		stale = versions[:len(versions)-keep]
	}
	if len(stale)+len(corrupt) == 0 {
		return nil, nil
	}
	removed := make([]string, 0, len(stale)+len(corrupt))
	removed = append(removed, corrupt...)
	for _, v := range stale {
		removed = append(removed, v.Version)
	}
	if dryRun {
		return removed, nil
	}

	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	batch := db.NewBatch()
	defer batch.Close()
	for _, v := range removed {
		if err := batch.Delete([]byte(keys.GenIndexSnapshotKey(name, v)), nil); err != nil {
			return nil, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("prune index %s: %w", name, err)
	}
	logger.Info("index_snapshots_pruned", "name", name, "removed", len(removed), "corrupt", len(corrupt), "kept", keep)
	return removed, nil
}

func (s Snapshot) info(size int) SnapshotInfo {
	return SnapshotInfo{Name: s.Name, Version: s.Version, CreatedAt: s.CreatedAt, Routes: s.Routes, Size: size}
}

func decode(b []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(bytes.Clone(b), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode index snapshot: %w", err)
	}
	if snap.Index == nil {
		snap.Index = routing.Index{}
	}
	return snap, nil
}

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
