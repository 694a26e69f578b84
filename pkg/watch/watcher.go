// Package watch re-runs an analysis when the assets of a project change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/sceneprobe/pkg/config"
)

// DefaultDebounce is the quiet period after the last change before a batch
// is delivered.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors a project tree and delivers batches of changed assets.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	root      string
	callback  func(changed []string)
	onError   func(err error)
	mu        sync.Mutex
	pending   map[string]time.Time
}

// NewWatcher creates a watcher for the project at root.
func NewWatcher(root string, cfg *config.Config, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  debounce,
		root:      root,
		pending:   make(map[string]time.Time),
	}, nil
}

// SetCallback sets the function called with each batch of changed paths.
// Batches are delivered one at a time.
func (w *Watcher) SetCallback(cb func(changed []string)) {
	w.callback = cb
}

// SetErrorHandler sets the function called with watch errors.
func (w *Watcher) SetErrorHandler(fn func(err error)) {
	w.onError = fn
}

// Start watches the project until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// addTree watches dir and every directory below it that is not excluded.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.config.IsExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Relevant reports whether a change to path can alter the analysis: scenes,
// scripts and script sidecars, matched case-insensitively.
func (w *Watcher) Relevant(path string) bool {
	if w.excluded(filepath.Dir(path)) {
		return false
	}
	lower := strings.ToLower(path)
	for _, suffix := range []string{
		w.config.Scan.SceneExt,
		w.config.Scan.ScriptExt,
		w.config.ScriptMetaSuffix(),
	} {
		if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// excluded reports whether dir or one of its parents below the root is an
// excluded directory.
func (w *Watcher) excluded(dir string) bool {
	rel, err := filepath.Rel(w.root, dir)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.config.IsExcludedDir(part) {
			return true
		}
	}
	return false
}

// handleEvent records a filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.excluded(path) {
				_ = w.addTree(path)
			}
			return
		}
	}

	if !w.Relevant(path) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processDebounced delivers pending changes after the debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ready := w.processPending(); len(ready) > 0 && w.callback != nil {
				w.callback(ready)
			}
		}
	}
}

// processPending removes and returns, sorted, the paths that have been quiet
// for the debounce period. Nothing is returned while any path is still
// settling, so a burst of changes arrives as one batch.
func (w *Watcher) processPending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for _, lastMod := range w.pending {
		if now.Sub(lastMod) < w.debounce {
			return nil
		}
	}

	ready := make([]string, 0, len(w.pending))
	for path := range w.pending {
		ready = append(ready, path)
	}
	clear(w.pending)
	sort.Strings(ready)
	return ready
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
