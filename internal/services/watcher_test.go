package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmykhattab/docuai/internal/config"
)

func testWatcher(t *testing.T) *Watcher {
	t.Helper()
	cfg := &config.Config{
		ConsumeDir:        t.TempDir(),
		AllowedExtensions: []string{"pdf", "png"},
	}
	w := NewWatcher(nil, cfg)
	w.pollInterval = 2 * time.Millisecond
	w.maxWait = 50 * time.Millisecond
	return w
}

func TestWaitForStableSizeSettledFile(t *testing.T) {
	w := testWatcher(t)
	path := filepath.Join(t.TempDir(), "done.pdf")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	assert.True(t, w.waitForStableSize(context.Background(), path))
}

func TestWaitForStableSizeMissingFile(t *testing.T) {
	w := testWatcher(t)
	assert.False(t, w.waitForStableSize(context.Background(), filepath.Join(t.TempDir(), "gone.pdf")))
}

func TestWaitForStableSizeGrowingFileProceedsAtCap(t *testing.T) {
	w := testWatcher(t)
	path := filepath.Join(t.TempDir(), "growing.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	stop := make(chan struct{})
	go func() {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		for {
			select {
			case <-stop:
				return
			default:
				_, _ = f.Write([]byte("x"))
			}
		}
	}()
	defer close(stop)

	// A file still growing at the cap is ingested anyway, with a warning.
	start := time.Now()
	assert.True(t, w.waitForStableSize(context.Background(), path))
	assert.GreaterOrEqual(t, time.Since(start), w.maxWait)
}

func TestWaitForStableSizeEmptyFileWaitsForCap(t *testing.T) {
	w := testWatcher(t)
	path := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	// A zero-byte file is never "stable": Create can fire before the writer's
	// first write. It polls until the cap and then proceeds with a warning.
	start := time.Now()
	assert.True(t, w.waitForStableSize(context.Background(), path))
	assert.GreaterOrEqual(t, time.Since(start), w.maxWait)
}

func TestWaitForStableSizeEmptyThenWrittenFileSettles(t *testing.T) {
	w := testWatcher(t)
	w.maxWait = time.Second
	path := filepath.Join(t.TempDir(), "slow.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	go func() {
		time.Sleep(5 * w.pollInterval)
		_ = os.WriteFile(path, []byte("content"), 0o644)
	}()

	start := time.Now()
	assert.True(t, w.waitForStableSize(context.Background(), path))
	assert.Less(t, time.Since(start), w.maxWait)
}

func TestWaitForStableSizeCancelledContext(t *testing.T) {
	w := testWatcher(t)
	w.maxWait = time.Minute
	path := filepath.Join(t.TempDir(), "file.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// First poll records the size, the cancelled context stops the second.
	done := make(chan bool, 1)
	go func() { done <- w.waitForStableSize(ctx, path) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waitForStableSize did not honor cancellation")
	}
}
