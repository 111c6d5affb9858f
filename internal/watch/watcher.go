package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is how long the watcher waits after the last observed
// change before triggering a sync. Editors typically produce bursts of
// events (write, chmod, rename) for a single save.
const defaultDebounce = 500 * time.Millisecond

// SyncFunc is invoked after a debounced batch of knowledge-base changes.
type SyncFunc func(ctx context.Context) error

// Watcher observes a knowledge-base directory tree and triggers a sync
// callback when rem files change.
type Watcher struct {
	root     string
	sync     SyncFunc
	debounce time.Duration
	logger   *slog.Logger

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	started bool
}

// NewWatcher creates a watcher rooted at the given directory. The sync
// callback runs on the watcher goroutine after changes settle.
func NewWatcher(root string, syncFn SyncFunc, logger *slog.Logger) (*Watcher, error) {
	if root == "" {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("root cannot be empty")
	}
	if syncFn == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("syncFn cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		sync:     syncFn,
		debounce: defaultDebounce,
		logger:   logger.With("component", "kb_watcher"),
		fsw:      fsw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("failed to close fsnotify watcher", "error", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Start begins watching in a background goroutine. Calling Start twice is a
// no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	w.started = true

	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the watch goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
		// already stopped
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("failed to close fsnotify watcher", "error", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// The timer is created stopped; each relevant event resets it, so the
	// sync fires only after changes settle for the debounce window.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}

			// New directories need to be watched too; fsnotify does not
			// recurse on its own.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory",
							"path", ev.Name,
							"error", err)
					}
				}
			}

			w.logger.Debug("kb change observed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("kb watcher error", "error", err)
		case <-timer.C:
			if err := w.sync(ctx); err != nil {
				w.logger.Error("kb sync after change failed", "error", err)
			}
		}
	}
}

// relevant filters out events the sync does not care about: chmod-only
// events, dotfiles, and non-markdown files (directory events are kept so
// new subtrees get watched).
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	if hasDotSegment(rel) {
		return false
	}

	// A removed or renamed path cannot be stat-ed; treat it as relevant if
	// it looks like a rem file.
	if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		return strings.HasSuffix(ev.Name, ".md") || filepath.Ext(ev.Name) == ""
	}

	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return true
	}
	return strings.HasSuffix(ev.Name, ".md")
}

// addRecursive registers dir and every non-hidden subdirectory with the
// fsnotify watcher.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The directory may have vanished between the event and the walk.
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// hasDotSegment reports whether any path segment starts with a dot.
func hasDotSegment(rel string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
