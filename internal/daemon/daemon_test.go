package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"av1watch/internal/config"
	"av1watch/internal/daemon"
	"av1watch/internal/encodejob"
	"av1watch/internal/encoding"
	"av1watch/internal/logging"
	"av1watch/internal/probe"
	"av1watch/internal/queue"
	"av1watch/internal/services"
	"av1watch/internal/testsupport"
	"av1watch/internal/watch"
	"av1watch/internal/workflow"
)

type stubProber struct{}

func (stubProber) Probe(_ context.Context, path string) (probe.Result, error) {
	return probe.Result{
		Path:  path,
		Audio: []probe.AudioTrack{{Index: 0, Channels: 2}},
		Video: probe.VideoTrack{Format: "AVC", DurationSeconds: 60, Width: 1920, Height: 1080},
	}, nil
}

type blockingEncoder struct {
	started chan string
	release chan struct{}

	mu      sync.Mutex
	aborted bool
	once    sync.Once
}

func (e *blockingEncoder) Run(_ context.Context, job encodejob.Job) (encoding.Result, error) {
	e.started <- job.InputPath
	if e.release != nil {
		<-e.release
	}
	e.mu.Lock()
	aborted := e.aborted
	e.mu.Unlock()
	if aborted {
		return encoding.Result{JobID: job.ID, ExitCode: -1}, &encoding.ProcessError{ExitCode: -1}
	}
	return encoding.Result{JobID: job.ID, OutputPath: job.OutputPath}, nil
}

func (e *blockingEncoder) Abort() bool {
	e.mu.Lock()
	e.aborted = true
	e.mu.Unlock()
	e.once.Do(func() { close(e.release) })
	return true
}

type fixture struct {
	daemon  *daemon.Daemon
	cfg     *config.Config
	manager *workflow.Manager
	watcher *watch.Watcher
}

func newFixture(t *testing.T, encoder *blockingEncoder) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	q := queue.New()
	manager := workflow.NewManager(cfg, workflow.Dependencies{
		Queue:   q,
		Prober:  stubProber{},
		Encoder: encoder,
	}, logger)
	watcher := watch.New(cfg.Paths.InputDir, cfg.Watch.Sentinel, 0, q, logger)
	d, err := daemon.New(cfg, logger, daemon.Components{
		Queue:    q,
		Workflow: manager,
		Watcher:  watcher,
		Encoder:  encoder,
	}, "session-test")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return fixture{daemon: d, cfg: cfg, manager: manager, watcher: watcher}
}

func waitStarted(t *testing.T, encoder *blockingEncoder) string {
	t.Helper()
	select {
	case path := <-encoder.started:
		return path
	case <-time.After(5 * time.Second):
		t.Fatal("encode never started")
		return ""
	}
}

func TestRunEncodesScannedFileAndStopsGracefully(t *testing.T) {
	encoder := &blockingEncoder{started: make(chan string, 4)}
	f := newFixture(t, encoder)
	d, cfg, manager := f.daemon, f.cfg, f.manager
	existing := filepath.Join(cfg.Paths.InputDir, "movie.mkv")
	testsupport.WriteFile(t, existing, 4)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, cfg.Watch.Sentinel), 0)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- d.Run(ctx, nil) }()

	if got := waitStarted(t, encoder); got != existing {
		t.Fatalf("expected %s to encode first, got %s", existing, got)
	}
	held, err := daemon.LockHeld(cfg.LockPath())
	if err != nil || !held {
		t.Fatalf("expected the lock to be held while running, held=%v err=%v", held, err)
	}

	cancel()
	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if status := manager.Status(); status.Outcomes[services.OutcomeSucceeded] != 1 {
		t.Fatalf("expected one success, got %+v", status.Outcomes)
	}
	if held, _ := daemon.LockHeld(cfg.LockPath()); held {
		t.Fatal("lock should be released after Run returns")
	}
	if d.Status().Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestRunPicksUpWatchedFile(t *testing.T) {
	encoder := &blockingEncoder{started: make(chan string, 4)}
	f := newFixture(t, encoder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result := make(chan error, 1)
	go func() { result <- f.daemon.Run(ctx, nil) }()

	select {
	case <-f.watcher.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}
	created := filepath.Join(f.cfg.Paths.InputDir, "late.mkv")
	testsupport.WriteFile(t, created, 4)
	if got := waitStarted(t, encoder); got != created {
		t.Fatalf("expected %s, got %s", created, got)
	}
	cancel()
	if err := <-result; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestAbortKillsInFlightEncode(t *testing.T) {
	encoder := &blockingEncoder{started: make(chan string, 4), release: make(chan struct{})}
	f := newFixture(t, encoder)
	d, cfg, manager := f.daemon, f.cfg, f.manager
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "a.mkv"), 4)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "b.mkv"), 4)

	ctx, cancel := context.WithCancel(context.Background())
	abort := make(chan struct{})
	result := make(chan error, 1)
	go func() { result <- d.Run(ctx, abort) }()

	waitStarted(t, encoder)
	cancel()
	select {
	case <-result:
		t.Fatal("Run returned before the in-flight encode ended")
	case <-time.After(50 * time.Millisecond):
	}

	close(abort)
	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after abort")
	}
	status := manager.Status()
	if status.Outcomes[services.OutcomeEncodeFailed] != 1 {
		t.Fatalf("expected aborted encode recorded as failed, got %+v", status.Outcomes)
	}
	if len(status.Pending) != 1 {
		t.Fatalf("expected the second file to remain pending, got %v", status.Pending)
	}
}

func TestRunRefusesWhenLockHeld(t *testing.T) {
	encoder := &blockingEncoder{started: make(chan string, 1)}
	f := newFixture(t, encoder)
	d, cfg := f.daemon, f.cfg

	other := flock.New(cfg.LockPath())
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer other.Unlock()

	err = d.Run(context.Background(), nil)
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestNewRequiresComponents(t *testing.T) {
	cfg := config.Default()
	if _, err := daemon.New(&cfg, nil, daemon.Components{}, ""); err == nil {
		t.Fatal("expected error for missing components")
	}
}
