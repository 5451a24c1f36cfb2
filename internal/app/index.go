package app

import (
	"errors"
	"fmt"

	"routecore/internal/handlers"
	"routecore/pkg/config"
	"routecore/pkg/logger"
	"routecore/pkg/manifest"
	"routecore/pkg/registry"
	"routecore/pkg/routing"
	"routecore/pkg/store"
)

// IndexSource records where a route index came from.
type IndexSource struct {
	// Kind is "snapshot" or "manifest".
	Kind     string `json:"kind"`
	Version  string `json:"version,omitempty"`
	Manifest string `json:"manifest,omitempty"`
}

// LoadIndex returns the newest stored snapshot for cfg.IndexName unless
// cfg.Rebuild is set or none exists, in which case the index is built from
// the manifest (the built-in one when cfg.Manifest is empty) and, with
// cfg.Save, stored. Snapshots are trusted and not re-validated.
func LoadIndex(st *store.Store, reg *registry.Registry, maker routing.IndexMaker, cfg config.RoutesConfig) (routing.Index, IndexSource, error) {
	if !cfg.Rebuild {
		snap, err := st.LatestIndex(cfg.IndexName)
		switch {
		case err == nil:
			logger.Info("index_snapshot_loaded", "name", cfg.IndexName, "version", snap.Version, "routes", snap.Routes)
			return snap.Index, IndexSource{Kind: "snapshot", Version: snap.Version}, nil
		case !errors.Is(err, store.ErrNoSnapshot):
			return nil, IndexSource{}, fmt.Errorf("load index %q: %w", cfg.IndexName, err)
		}
	}

	m, src, err := loadManifest(cfg.Manifest)
	if err != nil {
		return nil, IndexSource{}, err
	}
	idx, err := m.Build(reg, maker)
	if err != nil {
		return nil, IndexSource{}, fmt.Errorf("build index from %s: %w", src, err)
	}
	out := IndexSource{Kind: "manifest", Manifest: src}
	if cfg.Save {
		info, err := st.SaveIndex(cfg.IndexName, idx)
		if err != nil {
			return nil, IndexSource{}, err
		}
		out.Version = info.Version
	}
	logger.Info("index_built", "manifest", src, "routes", idx.Len(), "saved", cfg.Save)
	return idx, out, nil
}

func loadManifest(path string) (*manifest.Manifest, string, error) {
	if path == "" {
		m, err := manifest.Parse(handlers.DefaultManifest)
		return m, "builtin", err
	}
	m, err := manifest.Load(path)
	return m, path, err
}
