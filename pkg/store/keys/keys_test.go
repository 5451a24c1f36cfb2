package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSnapshotKeys(t *testing.T) {
	ts := time.Unix(1700000000, 42).UTC()
	v := GenIndexVersion(ts, 7)
	assert.Equal(t, "01700000000000000042-000007", v)

	key := GenIndexSnapshotKey("api", v)
	name, version, err := ParseIndexSnapshotKey(key)
	require.NoError(t, err)
	assert.Equal(t, "api", name)
	assert.Equal(t, v, version)

	got, err := ParseIndexVersion(version)
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}

func TestVersionsSortByTime(t *testing.T) {
	a := GenIndexVersion(time.Unix(1, 0), 999)
	b := GenIndexVersion(time.Unix(2, 0), 0)
	assert.Less(t, a, b)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("default"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("a:b"))
	assert.Error(t, ValidateName("a b"))
}

func TestParseErrors(t *testing.T) {
	_, _, err := ParseIndexSnapshotKey("system:version")
	assert.Error(t, err)
	_, _, err = ParseIndexSnapshotKey("ix:nover:")
	assert.Error(t, err)
	_, err = ParseIndexVersion("abc")
	assert.Error(t, err)
}
