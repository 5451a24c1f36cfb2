package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	p, err := Init(root)
	require.NoError(t, err)
	for _, dir := range []string{p.Store, p.Tel, p.Logs, p.Crash} {
		fi, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
	}
	assert.Equal(t, filepath.Join(root, "store"), StorePath(root))
}

func TestEnsureStateDirsRejectsFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "store"), []byte("x"), 0o600))
	assert.Error(t, EnsureStateDirs(root))
}

func TestArtifactRoot(t *testing.T) {
	t.Setenv("ROUTECORE_ARTIFACT_ROOT", "")
	assert.Empty(t, ArtifactPath("database"))

	dir := t.TempDir()
	t.Setenv("ROUTECORE_ARTIFACT_ROOT", dir)
	assert.Equal(t, filepath.Join(dir, "database"), ArtifactPath("database"))
}

func TestWriteCrashDump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crash")
	path, err := WriteCrashDump(dir, "boom", errors.New("bad"))
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "reason: boom")
	assert.Contains(t, string(b), "error: bad")
	assert.Contains(t, string(b), "goroutine")
}
