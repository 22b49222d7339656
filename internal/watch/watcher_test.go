package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mgit/internal/object"
	"mgit/internal/repo"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeRecorder) Add(_ context.Context, paths []string) ([]repo.Recorded, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repo.Recorded
	for _, p := range paths {
		f.paths = append(f.paths, p)
		out = append(out, repo.Recorded{Path: filepath.Base(p), Address: object.Hash("blob", []byte(p))})
	}
	return out, nil
}

func (f *fakeRecorder) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func setupTestWatcher(t *testing.T) (*Watcher, *fakeRecorder, string) {
	t.Helper()
	work, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(work, ".mgit", "objects"), 0755))

	rec := &fakeRecorder{}
	w, err := New(rec, filepath.Join(work, ".mgit"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, rec, work
}

func write(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(path), 0644))
	return path
}

func TestWatchExplicitFile(t *testing.T) {
	w, rec, work := setupTestWatcher(t)
	tracked := write(t, filepath.Join(work, "tracked.txt"))
	other := write(t, filepath.Join(work, "other.txt"))

	require.NoError(t, w.Watch(tracked))

	ctx := context.Background()
	w.handleEvent(ctx, fsnotify.Event{Name: tracked, Op: fsnotify.Write})
	w.handleEvent(ctx, fsnotify.Event{Name: other, Op: fsnotify.Write})
	w.handleEvent(ctx, fsnotify.Event{Name: tracked, Op: fsnotify.Chmod})

	assert.Equal(t, []string{tracked}, rec.recorded())
}

func TestWatchTree(t *testing.T) {
	w, rec, work := setupTestWatcher(t)
	require.NoError(t, w.Watch(work))
	ctx := context.Background()

	sub := filepath.Join(work, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	w.handleEvent(ctx, fsnotify.Event{Name: sub, Op: fsnotify.Create})
	assert.Contains(t, w.watcher.WatchList(), sub)

	file := write(t, filepath.Join(sub, "a.go"))
	hidden := write(t, filepath.Join(work, ".env"))
	inStore := write(t, filepath.Join(work, ".mgit", "index"))
	vendored := write(t, filepath.Join(work, "vendor", "x.go"))

	for _, p := range []string{file, hidden, inStore, vendored} {
		w.handleEvent(ctx, fsnotify.Event{Name: p, Op: fsnotify.Write})
	}
	w.handleEvent(ctx, fsnotify.Event{Name: filepath.Join(work, "gone.txt"), Op: fsnotify.Create})

	assert.Equal(t, []string{file}, rec.recorded())
}

func TestWatchMissingPath(t *testing.T) {
	w, _, work := setupTestWatcher(t)
	assert.Error(t, w.Watch(filepath.Join(work, "missing")))
}

func TestRunStopsOnCancel(t *testing.T) {
	w, _, _ := setupTestWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRecordsWrites(t *testing.T) {
	w, rec, work := setupTestWatcher(t)
	require.NoError(t, w.Watch(work))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := write(t, filepath.Join(work, "live.txt"))

	require.Eventually(t, func() bool {
		for _, p := range rec.recorded() {
			if p == path {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}
