package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesChanges(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	fired := make(chan struct{}, 4)

	w, err := New(root, 100*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		fired <- struct{}{}
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "page.md"), []byte{byte('a' + i)}, 0o644))
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("change callback not invoked")
	}
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	fired := make(chan struct{}, 8)

	w, err := New(root, 50*time.Millisecond, func(context.Context) error {
		fired <- struct{}{}
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	sub := filepath.Join(root, "guide")
	require.NoError(t, os.Mkdir(sub, 0o755))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("directory creation not observed")
	}

	require.NoError(t, os.WriteFile(filepath.Join(sub, "setup.md"), []byte("# Setup"), 0o644))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("change in new directory not observed")
	}
}

func TestWatcher_SkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	bundles := filepath.Join(root, "bundles")
	require.NoError(t, os.Mkdir(bundles, 0o755))
	fired := make(chan struct{}, 8)

	w, err := New(root, 50*time.Millisecond, func(context.Context) error {
		fired <- struct{}{}
		return nil
	}, nil, WithExclude(bundles))
	require.NoError(t, err)
	assert.NotContains(t, w.notify.WatchList(), bundles)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(bundles, "index.md.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(bundles, "guide"), 0o755))
	select {
	case <-fired:
		t.Fatal("write below excluded directory triggered a callback")
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "page.md"), []byte("# Page"), 0o644))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("change outside excluded directory not observed")
	}
}

func TestWatcher_HandleExcluded(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, 0, func(context.Context) error { return nil }, nil,
		WithExclude(filepath.Join(root, "dist"), ""))
	require.NoError(t, err)
	defer w.notify.Close()

	assert.False(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "dist"), Op: fsnotify.Create}))
	assert.False(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "dist", "index.html"), Op: fsnotify.Write}))
	assert.True(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "distro.md"), Op: fsnotify.Write}))
}

func TestIgnored(t *testing.T) {
	assert.True(t, ignored("/docs/.git"))
	assert.True(t, ignored("/docs/page.md~"))
	assert.True(t, ignored("/docs/node_modules"))
	assert.False(t, ignored("/docs/page.md"))
}

func TestNew_RequiresCallback(t *testing.T) {
	_, err := New(t.TempDir(), 0, nil, nil)
	assert.Error(t, err)
}
