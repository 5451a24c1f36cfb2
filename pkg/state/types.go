package state

import "path/filepath"

// Paths is the on-disk layout under the db path.
type Paths struct {
	DB    string
	Store string // pebble index snapshots
	State string
	Tel   string // trace files
	Logs  string
	Crash string
}

func PathsFor(dbPath string) Paths {
	statePath := filepath.Join(dbPath, "state")
	return Paths{
		DB:    dbPath,
		Store: filepath.Join(dbPath, "store"),
		State: statePath,
		Tel:   filepath.Join(statePath, "telemetry"),
		Logs:  filepath.Join(statePath, "logs"),
		Crash: filepath.Join(statePath, "crash"),
	}
}

func StorePath(dbPath string) string { return PathsFor(dbPath).Store }
func CrashPath(dbPath string) string { return PathsFor(dbPath).Crash }
