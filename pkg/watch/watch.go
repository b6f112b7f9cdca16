// Package watch re-runs a script whenever its file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher monitors one file and calls OnChange after it is written
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func(path string)
	logger   *zap.Logger

	// A burst of events resets timer; fire is signalled once it settles
	mu        sync.Mutex
	timer     *time.Timer
	fire      chan struct{}
	changeSeq uint64
}

// New creates a watcher for path. The file's directory is watched rather
// than the file itself so that editors which save by replacing the file are
// still noticed.
func New(path string, debounce time.Duration, onChange func(path string), logger *zap.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(absPath), err)
	}

	return &Watcher{
		watcher:  fsWatcher,
		path:     absPath,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		fire:     make(chan struct{}, 1),
	}, nil
}

// Changes returns how many changes have triggered OnChange
func (w *Watcher) Changes() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changeSeq
}

// Run processes file system events until ctx ends, then closes the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.stop()
	w.logger.Info("watching", zap.String("path", w.path), zap.Duration("debounce", w.debounce))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}

			// Only handle write and create events
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.logger.Debug("change seen", zap.String("op", event.Op.String()))
			w.schedule()

		case <-w.fire:
			w.mu.Lock()
			w.changeSeq++
			w.mu.Unlock()

			w.logger.Info("file changed", zap.String("path", w.path))
			w.onChange(w.path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// schedule (re)starts the debounce timer. Only the last event of a burst
// reaches onChange, after the file has been quiet for the debounce period.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}
