// Package watch rescans the open project when its Files directory changes.
//
// Changes are debounced: a burst of events (a folder of scans being copied
// in) triggers a single rescan once the directory has been quiet for the
// debounce delay.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/model"
)

// DefaultDebounce is the quiet period before a rescan.
const DefaultDebounce = 500 * time.Millisecond

// Trigger is the rescan trigger label reported to metrics.
const Trigger = "watch"

// Rescanner rebuilds the file lists of the open project.
type Rescanner interface {
	Rescan(trigger string) (core.RescanResult, error)
}

// Watcher watches one Files directory tree.
type Watcher struct {
	root     string
	rescan   Rescanner
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   bool
	lastEvent time.Time

	done chan struct{}
}

// New creates a watcher for root. It does not watch anything until Start.
func New(root string, rescan Rescanner, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:     root,
		rescan:   rescan,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger.With("component", "watcher", "root", root),
		done:     make(chan struct{}),
	}, nil
}

// Start adds watches for root and its subdirectories and processes events
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return err
	}
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("files watcher started", "debounce", w.debounce.String())
	return nil
}

// Stop closes the underlying watcher and waits for event processing to end.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if isHidden(path) && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if isHidden(event.Name) || event.Op == fsnotify.Chmod {
		return
	}

	// New folders are watched so files dropped into them are seen
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addWatchesRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	w.pendingMu.Lock()
	w.pending = true
	w.lastEvent = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("files change detected", "path", event.Name, "op", event.Op.String())
}

// flushPending rescans once the tree has been quiet for the debounce delay.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if !w.pending || time.Since(w.lastEvent) < w.debounce {
		w.pendingMu.Unlock()
		return
	}
	w.pending = false
	w.pendingMu.Unlock()

	result, err := w.rescan.Rescan(Trigger)
	if err != nil {
		w.logger.Error("rescan failed", "error", err)
		return
	}
	w.logger.Info("project rescanned",
		"objects", result.Objects,
		"added", result.Added,
		"removed", result.Removed,
		"changed", result.Changed,
	)
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Follow keeps a watcher on the Files directory of whichever project is
// open in store, restarting it when a project with a different root is
// opened. It returns when ctx is cancelled.
func Follow(ctx context.Context, store *core.Store, debounce time.Duration, logger *slog.Logger) {
	snapshots, unsubscribe := store.Subscribe()
	defer unsubscribe()

	var (
		current *Watcher
		root    string
	)
	stop := func() {
		if current != nil {
			current.Stop()
			current = nil
		}
	}
	defer stop()

	start := func(snap core.Snapshot) {
		base := snap.BasePath()
		if base == "" || model.FilesDir(base) == root {
			return
		}
		stop()
		root = model.FilesDir(base)

		w, err := New(root, store, debounce, logger)
		if err != nil {
			slog.Error("failed to create files watcher", "root", root, "error", err)
			return
		}
		if err := w.Start(ctx); err != nil {
			slog.Error("failed to start files watcher", "root", root, "error", err)
			w.watcher.Close()
			return
		}
		current = w
	}

	if snap, ok := store.Snapshot(); ok {
		start(snap)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			start(snap)
		}
	}
}
