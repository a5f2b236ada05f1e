// Package watcher keeps the probe cache current by watching directory trees
// for filesystem changes.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
)

// Handler reacts to filesystem changes. indexer.Indexer implements it.
type Handler interface {
	// Changed is called for created or modified paths.
	Changed(ctx context.Context, path string) error
	// Removed is called for deleted paths and the old name of a rename.
	Removed(ctx context.Context, path string) error
}

// Watcher watches directories recursively and forwards events to a Handler.
type Watcher struct {
	watcher *fsnotify.Watcher
	paths   map[string]bool
	mu      sync.RWMutex
	closed  bool
	log     *logging.Logger
}

// New creates a Watcher.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: fsw,
		paths:   make(map[string]bool),
		log:     logging.Get("watcher"),
	}, nil
}

// Watch adds watches for root and every directory below it. Symlinks are
// not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return w.addTree(absRoot)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable subtrees are skipped
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		w.log.Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Watched returns the number of directories currently watched.
func (w *Watcher) Watched() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.paths)
}

// Run forwards events to h until ctx is cancelled or the watcher is closed.
// Handler errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event, h)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event, h Handler) {
	var err error
	switch {
	case event.Op&fsnotify.Create != 0:
		if info, statErr := os.Lstat(event.Name); statErr == nil && info.IsDir() {
			_ = w.addTree(event.Name)
		}
		err = h.Changed(ctx, event.Name)
	case event.Op&fsnotify.Write != 0:
		err = h.Changed(ctx, event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// The new name of a rename arrives as a separate Create.
		w.unwatch(event.Name)
		err = h.Removed(ctx, event.Name)
	}

	if err != nil {
		w.log.Warn("failed to apply change", "path", event.Name, "op", event.Op.String(), "error", err)
	}
}

// unwatch forgets path and every watched directory below it.
func (w *Watcher) unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for watched := range w.paths {
		if watched == path || isSubPath(watched, path) {
			_ = w.watcher.Remove(watched)
			delete(w.paths, watched)
		}
	}
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath reports whether path is below parent.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
