package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"routecore/pkg/state"
	"routecore/pkg/store"
)

type printer func(format string, args ...any)

// output writes v as indented JSON, or calls human with a line printer.
func output(cmd *cobra.Command, format string, v any, human func(p printer)) error {
	w := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "human", "":
		human(func(f string, args ...any) { fmt.Fprintf(w, f+"\n", args...) })
		return nil
	default:
		return fmt.Errorf("unknown format %q: want json or human", format)
	}
}

func storePath(db string) string {
	return state.StorePath(filepath.Clean(db))
}

func snapshotSize(s store.Snapshot) int {
	b, err := json.Marshal(s)
	if err != nil {
		return 0
	}
	return len(b)
}
