// Package watcher reports batches of changed source files under a set of
// roots, debounced, deduplicated by content and throttled.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"nscope/internal/shared/observability"
	"nscope/internal/shared/util"
)

// ChangeFunc receives the paths that changed since the last batch, sorted.
// A path that no longer exists was removed.
type ChangeFunc func(ctx context.Context, paths []string)

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	filter    *util.PathFilter
	limiter   *util.Limiter
	onChange  ChangeFunc
	ctx       context.Context

	callbackMu sync.Mutex

	pending   map[string]time.Time
	hashes    map[string]uint64
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher returns a watcher. A nil limiter disables throttling.
func NewWatcher(debounce time.Duration, filter *util.PathFilter, limiter *util.Limiter, onChange ChangeFunc) (*Watcher, error) {
	if onChange == nil || filter == nil {
		return nil, os.ErrInvalid
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		filter:    filter,
		limiter:   limiter,
		onChange:  onChange,
		ctx:       context.Background(),
		pending:   make(map[string]time.Time),
		hashes:    make(map[string]uint64),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch starts watching paths recursively. The watcher stops when ctx is
// done or Close is called.
func (w *Watcher) Watch(ctx context.Context, paths []string) error {
	w.ctx = ctx
	for _, path := range paths {
		if err := w.watchRecursive(path, true); err != nil {
			return err
		}
	}

	go w.run(ctx)
	return nil
}

// watchRecursive adds every directory under root. With prime set, the
// content of existing files is recorded so untouched files do not fire.
func (w *Watcher) watchRecursive(root string, prime bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.filter.SkipDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		if prime && w.filter.Accept(path) {
			if sum, ok := hashFile(path); ok {
				w.pendingMu.Lock()
				w.hashes[path] = sum
				w.pendingMu.Unlock()
			}
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.filter.SkipDir(event.Name) {
						if err := w.watchRecursive(event.Name, false); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.filter.Accept(event.Name) {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Remove == fsnotify.Remove ||
				event.Op&fsnotify.Rename == fsnotify.Rename {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	candidates := util.SortedStringKeys(w.pending)
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	paths := w.changedContent(candidates)
	if len(paths) == 0 {
		return
	}

	ctx := w.ctx
	if w.limiter != nil && !w.limiter.Allow(len(paths)) {
		observability.WatcherThrottledTotal.Inc()
		slog.Debug("watch batch throttled", "files", len(paths))
		if err := w.limiter.Wait(ctx, len(paths)); err != nil {
			return
		}
	}

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(ctx, paths)
}

// changedContent drops paths whose content hash is unchanged and updates
// the hash table. Missing files are always reported.
func (w *Watcher) changedContent(candidates []string) []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	changed := make([]string, 0, len(candidates))
	for _, path := range candidates {
		sum, ok := hashFile(path)
		if !ok {
			if _, known := w.hashes[path]; known {
				delete(w.hashes, path)
				changed = append(changed, path)
			} else if _, err := os.Stat(path); os.IsNotExist(err) {
				changed = append(changed, path)
			}
			continue
		}
		if prev, known := w.hashes[path]; known && prev == sum {
			continue
		}
		w.hashes[path] = sum
		changed = append(changed, path)
	}
	return changed
}

func hashFile(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(data), true
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !w.filter.Accept(path) {
			return nil
		}
		w.scheduleChange(path)
		return nil
	})
}
