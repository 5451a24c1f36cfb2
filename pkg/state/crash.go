package state

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// WriteCrashDump writes reason, err and all goroutine stacks to a new file
// in dir and returns its path.
func WriteCrashDump(dir, reason string, err error) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("crash dir not set")
	}
	if e := os.MkdirAll(dir, 0o700); e != nil {
		return "", e
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%d.log", now.UnixNano()))
	f, ferr := os.Create(path)
	if ferr != nil {
		return "", ferr
	}
	defer f.Close()

	fmt.Fprintf(f, "time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	if err != nil {
		fmt.Fprintf(f, "error: %v\n", err)
	}
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	if _, werr := f.Write(buf[:n]); werr != nil {
		return "", werr
	}
	return path, nil
}
