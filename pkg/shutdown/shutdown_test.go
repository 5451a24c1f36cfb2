package shutdown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunContinuesAfterFailure(t *testing.T) {
	var order []string
	step := func(name string, err error) Step {
		return Step{Name: name, Fn: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}
	boom := errors.New("boom")
	err := Run(context.Background(), step("server", nil), step("store", boom), Step{Name: "nil"}, step("telemetry", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "store")
	assert.Equal(t, []string{"server", "store", "telemetry"}, order)
}

func TestRunStopsOnExpiredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Run(ctx, Step{Name: "late", Fn: func(context.Context) error { called = true; return nil }})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAbortWritesDumpAndExits(t *testing.T) {
	code := -1
	slept := 0
	exit = func(c int) { code = c }
	sleep = func(time.Duration) { slept++ }
	t.Cleanup(func() {
		exit = os.Exit
		sleep = time.Sleep
	})

	db := t.TempDir()
	Abort("failed to open store", errors.New("locked"), db, 2)
	assert.Equal(t, 2, code)
	assert.Equal(t, 2, slept)

	entries, err := os.ReadDir(filepath.Join(db, "state", "crash"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSetupSignalHandlerCancel(t *testing.T) {
	ctx, cancel := SetupSignalHandler(context.Background())
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
