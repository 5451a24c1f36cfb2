package progressor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routecore/pkg/store"
	"routecore/pkg/store/keys"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestNewStoreIsStamped(t *testing.T) {
	st := openStore(t)
	ran, err := Run(context.Background(), st)
	require.NoError(t, err)
	assert.False(t, ran)

	v, err := st.GetKey(keys.SystemVersionKey)
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestLegacySnapshotsAreBackfilled(t *testing.T) {
	st := openStore(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	version := keys.GenIndexVersion(ts, 1)
	legacy := `{"name":"default","version":"` + version + `","index":{"GET":{"/":"{}","/a":"{}"}}}`
	require.NoError(t, st.SaveKey(keys.GenIndexSnapshotKey("default", version), []byte(legacy)))

	f, err := StoredFormat(st)
	require.NoError(t, err)
	assert.Equal(t, 1, f)

	ran, err := Run(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, ran)

	snap, err := st.LatestIndex("default")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Routes)
	assert.True(t, snap.CreatedAt.Equal(ts))

	_, err = st.GetKey(keys.SystemInProgressKey)
	assert.True(t, store.IsNotFound(err))

	// second run is a no-op
	ran, err = Run(context.Background(), st)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestNewerFormatRefused(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.SaveKey(keys.SystemVersionKey, []byte("99")))
	_, err := Run(context.Background(), st)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestMalformedFormat(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.SaveKey(keys.SystemVersionKey, []byte("x")))
	_, err := StoredFormat(st)
	assert.Error(t, err)
}

func TestCanceledMigrationKeepsMarker(t *testing.T) {
	st := openStore(t)
	version := keys.GenIndexVersion(time.Now(), 1)
	require.NoError(t, st.SaveKey(keys.GenIndexSnapshotKey("default", version), []byte(`{"name":"default","version":"`+version+`","index":{}}`)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, st)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = st.GetKey(keys.SystemInProgressKey)
	assert.NoError(t, err)
	f, err := StoredFormat(st)
	require.NoError(t, err)
	assert.Equal(t, 1, f)
}
