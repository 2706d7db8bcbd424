package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncedChange(t *testing.T) {
	dir := t.TempDir()
	req := filepath.Join(dir, "requirements.md")
	other := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(req, []byte("# v1"), 0644))

	var (
		mu    sync.Mutex
		calls []string
	)
	changed := make(chan struct{}, 10)
	w, err := New([]string{req, ""}, func(_ context.Context, path string) error {
		mu.Lock()
		calls = append(calls, path)
		mu.Unlock()
		changed <- struct{}{}
		return errors.New("handler errors are logged only")
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to start reading events.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(req, []byte("# v2"), 0644))
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("handler was not called")
	}
	// Allow any stray timers to fire before checking the count.
	time.Sleep(200 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 1)
	assert.Equal(t, filepath.Clean(req), calls[0])
}

func TestNew_NoFiles(t *testing.T) {
	_, err := New(nil, func(context.Context, string) error { return nil })
	assert.Error(t, err)
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing", "requirements.md")},
		func(context.Context, string) error { return nil })
	assert.Error(t, err)
}
