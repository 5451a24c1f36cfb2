package state

import (
	"os"
	"path/filepath"
	"strings"
)

// ArtifactRoot returns the absolute ROUTECORE_ARTIFACT_ROOT, or "" when
// unset. Binaries default their db path under it.
func ArtifactRoot() string {
	root := strings.TrimSpace(os.Getenv("ROUTECORE_ARTIFACT_ROOT"))
	if root == "" {
		return ""
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

func ArtifactPath(elem ...string) string {
	root := ArtifactRoot()
	if root == "" {
		return ""
	}
	return filepath.Join(append([]string{root}, elem...)...)
}
