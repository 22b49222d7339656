// Package watch re-records files in the index as they change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mgit/internal/repo"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Recorder stores files and records them in the index.
type Recorder interface {
	Add(ctx context.Context, paths []string) ([]repo.Recorded, error)
}

// Watcher follows explicitly named files and whole directory trees.
type Watcher struct {
	rec     Recorder
	watcher *fsnotify.Watcher
	skip    string // store root, never recorded
	logger  *zap.Logger

	mu    sync.RWMutex
	files map[string]bool
	trees map[string]bool
}

// New creates a watcher that records through rec. Paths under storeRoot are
// never recorded.
func New(rec Recorder, storeRoot string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	skip, err := filepath.Abs(storeRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving store root: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	return &Watcher{
		rec:     rec,
		watcher: watcher,
		skip:    skip,
		logger:  logger,
		files:   make(map[string]bool),
		trees:   make(map[string]bool),
	}, nil
}

// Watch starts following paths. Directories are followed recursively,
// skipping ignored entries the way add does.
func (w *Watcher) Watch(paths ...string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("accessing path %s: %w", p, err)
		}

		if !info.IsDir() {
			if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
			}
			w.mu.Lock()
			w.files[abs] = true
			w.mu.Unlock()
			continue
		}

		w.mu.Lock()
		w.trees[abs] = true
		w.mu.Unlock()
		if err := w.addTree(abs); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == w.skip || (path != root && repo.ShouldIgnore(d.Name())) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if event.Name == w.skip || strings.HasPrefix(event.Name, w.skip+string(filepath.Separator)) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Removed again before we got to it.
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) && w.inTree(event.Name) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("adding new directory to watcher", zap.String("path", event.Name), zap.Error(err))
			}
		}
		return
	}
	if !info.Mode().IsRegular() || !w.tracks(event.Name) {
		return
	}

	recorded, err := w.rec.Add(ctx, []string{event.Name})
	if err != nil {
		w.logger.Warn("recording changed file", zap.String("path", event.Name), zap.Error(err))
		return
	}
	for _, r := range recorded {
		w.logger.Info("recorded", zap.String("path", r.Path), zap.Stringer("address", r.Address))
	}
}

// tracks reports whether a file event should be recorded.
func (w *Watcher) tracks(path string) bool {
	w.mu.RLock()
	explicit := w.files[path]
	w.mu.RUnlock()
	return explicit || w.inTree(path)
}

// inTree reports whether path lies in a watched tree with no ignored
// component below the tree root.
func (w *Watcher) inTree(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for root := range w.trees {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if !repo.ShouldIgnore(rel) {
			return true
		}
	}
	return false
}

// Close stops the underlying watcher; Run returns afterwards.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
