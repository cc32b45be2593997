package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usbdump.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	var calls atomic.Int32
	w := New(path, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("handler errors do not stop the watcher")
	}).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Keep writing until the watcher is registered and reports a change.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"controllers": []}`), 0o644)
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	// Unrelated files in the same directory are ignored.
	time.Sleep(100 * time.Millisecond)
	before := calls.Load()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent", "usbdump.json"), func(context.Context) error { return nil })
	err := w.Watch(context.Background())
	assert.Error(t, err)
}

func TestWithDebounceIgnoresNonPositive(t *testing.T) {
	w := New("x", nil).WithDebounce(0)
	assert.Equal(t, DefaultDebounce, w.debounce)
}
