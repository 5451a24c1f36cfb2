package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"routecore/pkg/logger"
	"routecore/pkg/store/keys"
)

var ErrNotFound = errors.New("key not found")

// IsNotFound reports whether err is a missing-key error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// GetKey reads a system key.
func (s *Store) GetKey(key string) (string, error) {
	db, err := s.handle()
	if err != nil {
		return "", err
	}
	v, closer, err := db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return string(v), nil
}

// SaveKey writes a system key.
func (s *Store) SaveKey(key string, value []byte) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.Set([]byte(key), value, pebble.Sync)
}

// DeleteKey removes a system key. Missing keys are not an error.
func (s *Store) DeleteKey(key string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.Delete([]byte(key), pebble.Sync)
}

// RewriteSnapshots calls fn for every stored snapshot and writes back the
// ones fn reports as changed, in one batch. It returns how many changed.
func (s *Store) RewriteSnapshots(fn func(*Snapshot) bool) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	prefix := []byte(keys.IndexRootPrefix)
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)})
	if err != nil {
		return 0, err
	}
	batch := db.NewBatch()
	defer batch.Close()
	changed := 0
	for it.First(); it.Valid(); it.Next() {
		snap, err := decode(it.Value())
		if err != nil {
			logger.Warn("index_snapshot_corrupt", "key", string(it.Key()), "error", err)
			continue
		}
		if !fn(&snap) {
			continue
		}
		data, err := json.Marshal(snap)
		if err != nil {
			it.Close()
			return 0, err
		}
		if err := batch.Set(append([]byte(nil), it.Key()...), data, nil); err != nil {
			it.Close()
			return 0, err
		}
		changed++
	}
	if err := it.Error(); err != nil {
		it.Close()
		return 0, err
	}
	if err := it.Close(); err != nil {
		return 0, err
	}
	if changed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("rewrite snapshots: %w", err)
	}
	return changed, nil
}
