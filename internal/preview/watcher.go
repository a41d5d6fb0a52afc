// Package preview watches the content sources of a running server and
// reloads them when an author saves a change.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pavesite/internal/logfields"
)

// DefaultDebounce collapses bursts of editor writes into one reload.
const DefaultDebounce = 300 * time.Millisecond

// ReloadFunc rebuilds content after a change.
type ReloadFunc func(ctx context.Context) error

// Watcher monitors content directories and files and triggers debounced reloads.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool // individually watched files, by absolute path
	dirs     map[string]bool // recursively watched roots, by absolute path
	reload   ReloadFunc
	debounce time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a watcher over paths. Directories are watched recursively;
// for a file, its directory is watched and events are filtered to the file.
func New(paths []string, debounce time.Duration, reload ReloadFunc) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		watcher:  fw,
		files:    map[string]bool{},
		dirs:     map[string]bool{},
		reload:   reload,
		debounce: debounce,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, p := range paths {
		if err := w.add(p); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve watch path %s: %w", path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat watch path %s: %w", path, err)
	}
	if fi.IsDir() {
		w.dirs[abs] = true
		return addDirsRecursive(w.watcher, abs)
	}
	w.files[abs] = true
	return w.watcher.Add(filepath.Dir(abs))
}

// Start begins watching in the background until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	slog.Info("Starting content watcher", logfields.Count(len(w.dirs)+len(w.files)))
	go w.loop(ctx)
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
		if w.started.Load() {
			<-w.done
		}
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || !w.relevant(ev.Name) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(w.watcher, ev.Name)
		}
	}
	slog.Debug("Content change detected", logfields.File(ev.Name), slog.String("op", ev.Op.String()))
	w.trigger(ctx)
}

// relevant reports whether name is under a watched root or is a watched file.
func (w *Watcher) relevant(name string) bool {
	if w.files[name] {
		return true
	}
	for root := range w.dirs {
		if name == root || strings.HasPrefix(name, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) trigger(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopChan:
			return
		default:
		}
		start := time.Now()
		if err := w.reload(ctx); err != nil {
			slog.Error("Content reload failed", logfields.Error(err))
			return
		}
		slog.Info("Content reloaded", logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	})
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// hidden files, editor swap files and lock files
	if strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
