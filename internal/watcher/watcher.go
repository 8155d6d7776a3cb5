// Package watcher purges derivatives and thumbnails when their source is
// deleted or renamed outside the API, for example over SMB or by the upload
// pipeline.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"media-derive/internal/derivative"
	"media-derive/internal/logging"
	"media-derive/internal/metrics"
	"media-derive/internal/storage"
)

// Watcher watches every directory under an on-disk storage root.
type Watcher struct {
	root      *storage.Root
	thumbRoot string
	watcher   *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]bool
}

// New creates a watcher and registers all existing directories. The root
// must be on the OS filesystem.
func New(root *storage.Root, thumbRoot string) (*Watcher, error) {
	if root.Dir() == "" {
		return nil, errors.New("watcher requires an on-disk storage root")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, err
	}

	w := &Watcher{
		root:      root,
		thumbRoot: strings.Trim(thumbRoot, "/"),
		watcher:   fw,
		watched:   make(map[string]bool),
	}

	count := w.addTree(root.Dir())
	logging.Debug("Watcher started, watching %d directories", count)
	return w, nil
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) int {
	count := 0
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if w.isThumbnailTree(p) {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(p); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", p, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		w.mu.Lock()
		if !w.watched[p] {
			w.watched[p] = true
			count++
		}
		w.mu.Unlock()
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", dir, err)
		metrics.WatcherErrors.Inc()
	}
	metrics.WatchedDirectories.Add(float64(count))
	return count
}

func (w *Watcher) isThumbnailTree(p string) bool {
	if w.thumbRoot == "" {
		return false
	}
	thumbs := filepath.Join(w.root.Dir(), filepath.FromSlash(w.thumbRoot))
	return p == thumbs || strings.HasPrefix(p, thumbs+string(filepath.Separator))
}

// Watching reports whether dir (an OS path) is being watched.
func (w *Watcher) Watching(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched[dir]
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	metrics.WatchedDirectories.Set(0)
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if strings.Contains(event.Name, string(filepath.Separator)+".") {
		return
	}

	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.handleRemove(event.Name)
	}
}

func (w *Watcher) handleCreate(name string) {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return
	}
	if n := w.addTree(name); n > 0 {
		logging.Debug("Added %d new directories to watcher under %s", n, name)
	}
}

func (w *Watcher) handleRemove(name string) {
	rel, err := filepath.Rel(w.root.Dir(), name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	storagePath := "/" + filepath.ToSlash(rel)

	w.mu.Lock()
	wasDir := w.watched[name]
	if wasDir {
		for p := range w.watched {
			if p == name || strings.HasPrefix(p, name+string(filepath.Separator)) {
				delete(w.watched, p)
				metrics.WatchedDirectories.Dec()
			}
		}
	}
	w.mu.Unlock()

	if wasDir {
		if err := derivative.PurgeDir(w.root, storagePath, w.thumbRoot, "watcher"); err != nil {
			logging.Warn("Purge of thumbnails under %s failed: %v", storagePath, err)
		}
		return
	}

	if derivative.IsArtifact(name) || w.isThumbnailTree(name) {
		return
	}
	// A replacement may already be in place, as with editors that save by rename.
	if w.root.IsFile(storagePath) {
		return
	}

	if _, err := derivative.Purge(w.root, storagePath, w.thumbRoot, "watcher"); err != nil {
		logging.Warn("Purge for %s failed: %v", storagePath, err)
	}
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
