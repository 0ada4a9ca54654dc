// Package watchsvc is an optional, best-effort file-watching trigger for
// internal/reindex: it watches a codebase root for filesystem events and
// calls a debounced callback, so a long-running process can supplement
// the documented `reindex` command with automatic change-driven
// reconciliation.
//
// Events are coalesced within a debounce window rather than acted on
// individually: the callback always runs a full Merkle diff, so a
// burst of events for the same path collapses to a single rescan
// regardless of which operation triggered it.
package watchsvc

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Luiz-Frias/semantic-code-agx/internal/ignore"
)

// Watcher watches a codebase root and invokes OnChange (debounced) after
// filesystem activity settles.
type Watcher struct {
	root   string
	ignore *ignore.Matcher
	window time.Duration

	fsWatcher *fsnotify.Watcher
	onChange  func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped chan struct{}
}

// DefaultDebounce is the quiet period after the last observed event
// before OnChange fires.
const DefaultDebounce = 500 * time.Millisecond

// New creates a Watcher rooted at absRoot. ign, when non-nil, is used to
// skip ignored directories so renamed/added ignore targets (e.g. inside
// ".context/") never trigger a reindex. debounce defaults to
// DefaultDebounce when zero.
func New(absRoot string, ign *ignore.Matcher, debounce time.Duration, onChange func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:      absRoot,
		ignore:    ign,
		window:    debounce,
		fsWatcher: fsw,
		onChange:  onChange,
		stopped:   make(chan struct{}),
	}
	return w, nil
}

// Start adds every directory under root to the watch set and begins
// processing events in a background goroutine. Errors adding individual
// directories are logged and skipped; a single unreadable subtree never
// prevents watching the rest of the codebase.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.loop()
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	rel, err := filepath.Rel(w.root, dir)
	if err != nil {
		return err
	}
	if rel != "." && w.ignore != nil && w.ignore.Ignored(filepath.ToSlash(rel)) {
		return nil
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		slog.Warn("watchsvc: failed to watch directory", slog.String("dir", dir), slog.String("error", err.Error()))
		return nil
	}
	entries, err := readDirNames(dir)
	if err != nil {
		return nil
	}
	for _, name := range entries {
		child := filepath.Join(dir, name)
		if isDir(child) {
			_ = w.addRecursive(child)
		}
	}
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				_ = w.addRecursive(event.Name)
			}
			w.scheduleChange()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watchsvc: fsnotify error", slog.String("error", err.Error()))
		case <-w.stopped:
			return
		}
	}
}

func (w *Watcher) scheduleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.window, w.onChange)
}

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Close stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.stopped)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}
