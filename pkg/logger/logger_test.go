package logger

import (
	"bytes"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSafeHeadersRedactsCredentials(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("X-API-Key", "k1")
	h.Set("Accept", "text/plain")

	out := SafeHeaders(h)
	assert.Contains(t, out, "Accept=text/plain")
	assert.Contains(t, out, "Authorization=[redacted]")
	assert.Contains(t, out, "X-Api-Key=[redacted]")
	assert.NotContains(t, out, "secret")
}

func TestHelpersWithoutLogger(t *testing.T) {
	prev := Log
	Log = nil
	defer func() { Log = prev }()

	// must not panic
	Info("noop", "k", "v")
	Error("noop")
}

func TestInitWriter(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	var buf bytes.Buffer
	InitWriter(&buf, "warn")
	Info("hidden")
	Warn("route_not_found", "path", "/x")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "route_not_found")
	assert.Contains(t, buf.String(), "path=/x")
}

func TestInitFileSinkJSON(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	path := filepath.Join(t.TempDir(), "routecore.log")
	Init(Options{Level: "info", Sink: "file:" + path, Format: "json"})
	Debug("hidden")
	Info("index_snapshot_saved", "routes", 3)
	Sync()
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"msg":"index_snapshot_saved"`)
	assert.Contains(t, string(data), `"routes":3`)
	assert.Zero(t, Dropped())
}

func TestAsyncSinkDropsWhenFull(t *testing.T) {
	a := &asyncSink{ch: make(chan []byte, 1)}
	n, err := a.Write([]byte("one"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, _ = a.Write([]byte("two"))
	assert.Equal(t, int64(1), a.dropped.Load())
}
