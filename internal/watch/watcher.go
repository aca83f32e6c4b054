package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"av1watch/internal/logging"
)

// Sink receives discovered paths. queue.Queue satisfies it.
type Sink interface {
	Push(path string) bool
}

// Watcher reports files created in Dir to Sink until its context ends.
type Watcher struct {
	Dir      string
	Sentinel string
	// Settle delays reporting a new file until its size is unchanged across
	// one interval. Zero reports on the create event.
	Settle time.Duration
	Sink   Sink
	Logger *slog.Logger

	ready chan struct{}
	once  sync.Once
}

// New constructs a watcher for dir.
func New(dir, sentinel string, settle time.Duration, sink Sink, logger *slog.Logger) *Watcher {
	return &Watcher{
		Dir:      dir,
		Sentinel: sentinel,
		Settle:   settle,
		Sink:     sink,
		Logger:   logging.NewComponentLogger(logger, "watcher"),
	}
}

// Ready is closed once the directory watch is registered.
func (w *Watcher) Ready() <-chan struct{} {
	w.once.Do(func() { w.ready = make(chan struct{}) })
	return w.ready
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Sink == nil {
		return errors.New("watcher sink is required")
	}
	logger := w.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	ready := w.Ready()
	close(ready)
	logger.Info("watching input directory", logging.String(logging.FieldPath, w.Dir))

	var pending sync.WaitGroup
	defer pending.Wait()

	for {
		select {
		case <-ctx.Done():
			logger.Info("input watcher stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("file watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !w.accept(event.Name) {
				continue
			}
			if w.Settle <= 0 {
				w.report(logger, event.Name)
				continue
			}
			pending.Add(1)
			go func(path string) {
				defer pending.Done()
				if w.waitStable(ctx, path) {
					w.report(logger, path)
				}
			}(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("file watcher errors channel closed")
			}
			logging.WarnWithContext(logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "files created during the error may need to be re-added"),
				logging.String(logging.FieldImpact, "new files might not be queued"),
			)
		}
	}
}

func (w *Watcher) accept(path string) bool {
	if filepath.Dir(path) != filepath.Clean(w.Dir) {
		return false
	}
	if Ignored(path, w.Sentinel) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func (w *Watcher) report(logger *slog.Logger, path string) {
	if !w.Sink.Push(path) {
		logger.Debug("queue closed; dropping new file", logging.String(logging.FieldPath, path))
		return
	}
	logger.Info("queued new file", logging.String(logging.FieldPath, path))
}

// waitStable polls the file size every Settle interval and returns true once
// two consecutive readings match. It returns false if the file disappears or
// ctx ends.
func (w *Watcher) waitStable(ctx context.Context, path string) bool {
	last := int64(-1)
	ticker := time.NewTicker(w.Settle)
	defer ticker.Stop()
	for {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == last {
			return true
		}
		last = info.Size()
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
