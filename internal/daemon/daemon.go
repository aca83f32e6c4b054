package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"av1watch/internal/config"
	"av1watch/internal/logging"
	"av1watch/internal/queue"
	"av1watch/internal/watch"
	"av1watch/internal/workflow"
)

// ErrAlreadyRunning reports that another instance holds the state directory lock.
var ErrAlreadyRunning = errors.New("another av1watch daemon instance is already running")

// Aborter kills an in-flight encode.
type Aborter interface {
	Abort() bool
}

// Components are the parts the daemon drives.
type Components struct {
	Queue    *queue.Queue
	Workflow *workflow.Manager
	Watcher  *watch.Watcher
	Encoder  Aborter
}

// Daemon owns the process lifecycle.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	parts     Components
	sessionID string

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	SessionID    string
	LockFilePath string
	Workflow     workflow.StatusSummary
}

// NewSessionID returns a fresh identifier for one daemon run.
func NewSessionID() string {
	return uuid.NewString()
}

// New constructs a daemon. sessionID may be empty.
func New(cfg *config.Config, logger *slog.Logger, parts Components, sessionID string) (*Daemon, error) {
	if cfg == nil || parts.Queue == nil || parts.Workflow == nil || parts.Watcher == nil {
		return nil, errors.New("daemon requires config, queue, workflow manager, and watcher")
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon").With(logging.String("session_id", sessionID)),
		parts:     parts,
		sessionID: sessionID,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Run scans the input directory, starts the watcher and the worker, and
// blocks until the worker exits. Cancelling ctx begins a graceful shutdown
// that waits for the current encode; a receive on abort kills it instead.
// The returned error is non-nil when startup failed or the worker stopped on
// a fatal error.
func (d *Daemon) Run(ctx context.Context, abort <-chan struct{}) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, d.lockPath)
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	d.logger.Info("av1watch daemon started",
		logging.String("input_dir", d.cfg.Paths.InputDir),
		logging.String("output_dir", d.cfg.Paths.OutputDir),
		logging.String("lock", d.lockPath),
	)

	found, err := watch.Scan(d.cfg.Paths.InputDir, d.cfg.Watch.Sentinel)
	if err != nil {
		return err
	}
	for _, path := range found {
		d.parts.Queue.Push(path)
	}
	d.logger.Info("startup scan complete", logging.Int("queued", len(found)))

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	var watchWG sync.WaitGroup
	watchErr := make(chan error, 1)
	watchWG.Add(1)
	go func() {
		defer watchWG.Done()
		if err := d.parts.Watcher.Run(watchCtx); err != nil {
			watchErr <- err
		}
	}()

	if err := d.parts.Workflow.Start(ctx); err != nil {
		stopWatch()
		watchWG.Wait()
		return fmt.Errorf("start workflow: %w", err)
	}

	var runErr error
	select {
	case <-d.parts.Workflow.Done():
		runErr = d.parts.Workflow.Err()
	case err := <-watchErr:
		logging.ErrorWithContext(d.logger, "input watcher failed", "watcher_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the input directory still exists"),
		)
		runErr = fmt.Errorf("input watcher: %w", err)
		d.shutdown(abort)
	case <-ctx.Done():
		d.shutdown(abort)
	}

	stopWatch()
	watchWG.Wait()
	d.parts.Queue.Close()

	status := d.parts.Workflow.Status()
	d.logger.Info("av1watch daemon stopped",
		logging.Int("pending", len(status.Pending)),
		logging.Any("outcomes", status.Outcomes),
	)
	return runErr
}

// shutdown stops the worker, waiting for the in-flight encode unless abort fires.
func (d *Daemon) shutdown(abort <-chan struct{}) {
	stopped := make(chan struct{})
	go func() {
		d.parts.Workflow.Stop()
		close(stopped)
	}()

	if current := d.parts.Workflow.Status().Current; current != "" {
		d.logger.Info("shutdown requested; waiting for the current encode to finish",
			logging.String(logging.FieldPath, current),
			logging.String(logging.FieldErrorHint, "interrupt again to abort the encode"),
		)
	} else {
		d.logger.Info("shutdown requested")
	}

	select {
	case <-stopped:
		return
	case <-abort:
	}
	if d.parts.Encoder != nil && d.parts.Encoder.Abort() {
		logging.WarnWithContext(d.logger, "aborted in-flight encode", "encode_aborted",
			logging.String(logging.FieldErrorHint, "rerun the file; resume keeps finished chunks"),
			logging.String(logging.FieldImpact, "the current output is incomplete"),
		)
	}
	<-stopped
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		SessionID:    d.sessionID,
		LockFilePath: d.lockPath,
		Workflow:     d.parts.Workflow.Status(),
	}
}

// LockHeld reports whether a daemon currently holds the lock at path.
func LockHeld(path string) (bool, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	_ = lock.Unlock()
	return false, nil
}
