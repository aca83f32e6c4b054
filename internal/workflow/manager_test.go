package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"av1watch/internal/config"
	"av1watch/internal/crop"
	"av1watch/internal/encodejob"
	"av1watch/internal/encoding"
	"av1watch/internal/history"
	"av1watch/internal/probe"
	"av1watch/internal/queue"
	"av1watch/internal/services"
	"av1watch/internal/workflow"
)

type fakeProber struct {
	results map[string]probe.Result
	errs    map[string]error
}

func (f *fakeProber) Probe(_ context.Context, path string) (probe.Result, error) {
	if err, ok := f.errs[path]; ok {
		return probe.Result{}, err
	}
	if result, ok := f.results[path]; ok {
		return result, nil
	}
	return probe.Result{}, &probe.Error{Path: path, Reason: "file not found", Err: services.ErrNotFound}
}

type fakeCrop struct {
	filter string
}

func (f fakeCrop) Detect(context.Context, string, float64) (crop.Result, error) {
	if f.filter == "" {
		return crop.Result{Reason: "samples disagree"}, nil
	}
	return crop.Result{Filter: f.filter, Reason: "all samples agree"}, nil
}

type fakeEncoder struct {
	mu      sync.Mutex
	jobs    []encodejob.Job
	results []error
	started chan string
	release chan struct{}
}

func (f *fakeEncoder) Run(_ context.Context, job encodejob.Job) (encoding.Result, error) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	var err error
	if len(f.results) > 0 {
		err = f.results[0]
		f.results = f.results[1:]
	}
	f.mu.Unlock()

	if f.started != nil {
		f.started <- job.InputPath
	}
	if f.release != nil {
		<-f.release
	}
	result := encoding.Result{JobID: job.ID, OutputPath: job.OutputPath, ExitCode: 0, Duration: time.Minute}
	var perr *encoding.ProcessError
	if errors.As(err, &perr) {
		result.ExitCode = perr.ExitCode
	}
	return result, err
}

func (f *fakeEncoder) Jobs() []encodejob.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]encodejob.Job(nil), f.jobs...)
}

type memoryHistory struct {
	mu   sync.Mutex
	rows []history.Transition
}

func (h *memoryHistory) Record(_ context.Context, t history.Transition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows = append(h.rows, t)
	return nil
}

func (h *memoryHistory) states(path string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range h.rows {
		if r.SourcePath == path {
			out = append(out, r.State)
		}
	}
	return out
}

func (h *memoryHistory) last(path string) history.Transition {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out history.Transition
	for _, r := range h.rows {
		if r.SourcePath == path {
			out = r
		}
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.InputDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	return &cfg
}

func movie(path string, tracks ...probe.AudioTrack) probe.Result {
	return probe.Result{
		Path:  path,
		Audio: tracks,
		Video: probe.VideoTrack{Format: "AVC", DurationSeconds: 5400, Width: 1920, Height: 1080},
	}
}

type harness struct {
	manager *workflow.Manager
	queue   *queue.Queue
	encoder *fakeEncoder
	history *memoryHistory
}

func newHarness(t *testing.T, cfg *config.Config, prober *fakeProber, encoder *fakeEncoder) *harness {
	t.Helper()
	q := queue.New()
	hist := &memoryHistory{}
	counter := 0
	m := workflow.NewManager(cfg, workflow.Dependencies{
		Queue:   q,
		Prober:  prober,
		Crop:    fakeCrop{filter: "crop=1920:800:0:140"},
		Encoder: encoder,
		History: hist,
	}, nil, workflow.WithSessionID("session-test"), workflow.WithIDGenerator(func() string {
		counter++
		return fmt.Sprintf("job-%d", counter)
	}))
	return &harness{manager: m, queue: q, encoder: encoder, history: hist}
}

func (h *harness) drain(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		h.queue.Push(p)
	}
	h.queue.Close()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-h.manager.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}
}

func TestSuccessfulFileWalksAllStates(t *testing.T) {
	cfg := testConfig(t)
	prober := &fakeProber{results: map[string]probe.Result{
		"/in/movie.mkv": movie("/in/movie.mkv",
			probe.AudioTrack{Index: 0, Compression: probe.CompressionLossless, Channels: 6, Format: "MLP FBA"},
			probe.AudioTrack{Index: 1, Compression: probe.CompressionLossy, Channels: 2, Format: "AC-3"},
		),
	}}
	h := newHarness(t, cfg, prober, &fakeEncoder{})
	h.drain(t, "/in/movie.mkv")

	want := []string{"discovered", "probed", "policy_resolved", "dispatched", "completed"}
	if got := h.history.states("/in/movie.mkv"); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("states = %v, want %v", got, want)
	}
	last := h.history.last("/in/movie.mkv")
	if last.Outcome != services.OutcomeSucceeded || last.ExitCode == nil || *last.ExitCode != 0 {
		t.Fatalf("unexpected terminal transition %+v", last)
	}
	if last.SessionID != "session-test" || last.JobID != "job-1" {
		t.Fatalf("unexpected ids %+v", last)
	}

	jobs := h.encoder.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected one encode, got %d", len(jobs))
	}
	job := jobs[0]
	if !strings.Contains(job.AudioOptions, "-c:a:0 libopus -b:a:0 256k") || !strings.Contains(job.AudioOptions, "-c:a:1 copy") {
		t.Fatalf("unexpected audio options %q", job.AudioOptions)
	}
	if job.VideoFilter != "crop=1920:800:0:140" {
		t.Fatalf("unexpected video filter %q", job.VideoFilter)
	}
	if job.ChunkMethod != "lsmash" {
		t.Fatalf("expected lsmash chunk method, got %s", job.ChunkMethod)
	}

	status := h.manager.Status()
	if status.Outcomes[services.OutcomeSucceeded] != 1 || status.Running {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestProbeFailureDoesNotStopWorker(t *testing.T) {
	cfg := testConfig(t)
	prober := &fakeProber{
		results: map[string]probe.Result{
			"/in/good.mkv": movie("/in/good.mkv", probe.AudioTrack{Index: 0, Channels: 2}),
		},
		errs: map[string]error{
			"/in/bad.mkv": &probe.Error{Path: "/in/bad.mkv", Reason: "no tracks", Err: services.ErrValidation},
		},
	}
	h := newHarness(t, cfg, prober, &fakeEncoder{})
	h.drain(t, "/in/bad.mkv", "/in/good.mkv")

	if got := h.history.states("/in/bad.mkv"); strings.Join(got, ",") != "discovered,failed" {
		t.Fatalf("unexpected bad file states %v", got)
	}
	if last := h.history.last("/in/bad.mkv"); last.Outcome != services.OutcomeUnsupported {
		t.Fatalf("expected unsupported outcome, got %q", last.Outcome)
	}
	if last := h.history.last("/in/good.mkv"); last.State != "completed" {
		t.Fatalf("expected good file completed, got %+v", last)
	}
	if h.manager.Err() != nil {
		t.Fatalf("per-file failure must not be fatal: %v", h.manager.Err())
	}
}

func TestUnsupportedChannelLayoutNeverEncodes(t *testing.T) {
	cfg := testConfig(t)
	prober := &fakeProber{results: map[string]probe.Result{
		"/in/quad.mkv": movie("/in/quad.mkv", probe.AudioTrack{Index: 0, Compression: probe.CompressionLossless, Channels: 4}),
	}}
	h := newHarness(t, cfg, prober, &fakeEncoder{})
	h.drain(t, "/in/quad.mkv")

	if len(h.encoder.Jobs()) != 0 {
		t.Fatal("encoder must not run for an unsupported layout")
	}
	last := h.history.last("/in/quad.mkv")
	if last.State != "failed" || last.Outcome != services.OutcomeUnsupported {
		t.Fatalf("unexpected terminal transition %+v", last)
	}
	if !strings.Contains(last.Detail, "not implemented") {
		t.Fatalf("expected not implemented detail, got %q", last.Detail)
	}
}

func TestEncodeFailureRecordedWithoutRetry(t *testing.T) {
	cfg := testConfig(t)
	prober := &fakeProber{results: map[string]probe.Result{
		"/in/a.mkv": movie("/in/a.mkv"),
		"/in/b.mkv": movie("/in/b.mkv"),
	}}
	encoder := &fakeEncoder{results: []error{&encoding.ProcessError{ExitCode: 2}}}
	h := newHarness(t, cfg, prober, encoder)
	h.drain(t, "/in/a.mkv", "/in/b.mkv")

	last := h.history.last("/in/a.mkv")
	if last.State != "failed" || last.Outcome != services.OutcomeEncodeFailed {
		t.Fatalf("unexpected terminal transition %+v", last)
	}
	if last.ExitCode == nil || *last.ExitCode != 2 {
		t.Fatalf("expected exit code 2, got %v", last.ExitCode)
	}
	if got := len(encoder.Jobs()); got != 2 {
		t.Fatalf("expected both files encoded once, got %d runs", got)
	}
	if h.history.last("/in/b.mkv").State != "completed" {
		t.Fatal("second file should complete")
	}
}

func TestEncodeFailureRequeuedWhenEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Encoder.RetryOnFailure = true
	cfg.Encoder.MaxAttempts = 2
	prober := &fakeProber{results: map[string]probe.Result{"/in/a.mkv": movie("/in/a.mkv")}}
	encoder := &fakeEncoder{
		results: []error{&encoding.ProcessError{ExitCode: 1}},
		started: make(chan string, 4),
	}
	h := newHarness(t, cfg, prober, encoder)
	h.queue.Push("/in/a.mkv")
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-encoder.started:
		case <-time.After(5 * time.Second):
			t.Fatalf("encode attempt %d never started", i+1)
		}
	}
	h.queue.Close()
	<-h.manager.Done()

	rows := h.history.states("/in/a.mkv")
	if strings.Count(strings.Join(rows, ","), "discovered") != 2 {
		t.Fatalf("expected two attempts, got %v", rows)
	}
	last := h.history.last("/in/a.mkv")
	if last.State != "completed" || last.Attempt != 2 {
		t.Fatalf("expected second attempt to complete, got %+v", last)
	}
}

func TestSpawnFailureStopsWorker(t *testing.T) {
	cfg := testConfig(t)
	prober := &fakeProber{results: map[string]probe.Result{
		"/in/a.mkv": movie("/in/a.mkv"),
		"/in/b.mkv": movie("/in/b.mkv"),
	}}
	encoder := &fakeEncoder{results: []error{fmt.Errorf("%w: exec: not found", encoding.ErrSpawn)}}
	h := newHarness(t, cfg, prober, encoder)
	h.drain(t, "/in/a.mkv", "/in/b.mkv")

	if !errors.Is(h.manager.Err(), encoding.ErrSpawn) {
		t.Fatalf("expected spawn error, got %v", h.manager.Err())
	}
	if len(encoder.Jobs()) != 1 {
		t.Fatalf("worker should stop after the spawn failure, ran %d jobs", len(encoder.Jobs()))
	}
	if h.queue.Len() != 1 {
		t.Fatalf("second file should remain queued, pending %d", h.queue.Len())
	}
}

func TestStopWaitsForInFlightEncode(t *testing.T) {
	cfg := testConfig(t)
	prober := &fakeProber{results: map[string]probe.Result{
		"/in/a.mkv": movie("/in/a.mkv"),
		"/in/b.mkv": movie("/in/b.mkv"),
	}}
	encoder := &fakeEncoder{started: make(chan string, 2), release: make(chan struct{})}
	h := newHarness(t, cfg, prober, encoder)
	h.queue.Push("/in/a.mkv")
	h.queue.Push("/in/b.mkv")
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-encoder.started:
	case <-time.After(5 * time.Second):
		t.Fatal("encode never started")
	}

	stopped := make(chan struct{})
	go func() {
		h.manager.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while an encode was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(encoder.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the encode finished")
	}
	if len(encoder.Jobs()) != 1 {
		t.Fatalf("no new file should start after Stop, ran %d", len(encoder.Jobs()))
	}
	if h.history.last("/in/a.mkv").State != "completed" {
		t.Fatal("in-flight encode should be recorded as completed")
	}
	if h.queue.Len() != 1 {
		t.Fatalf("expected the second file to stay pending, got %d", h.queue.Len())
	}
}

func TestStartRequiresDependencies(t *testing.T) {
	m := workflow.NewManager(testConfig(t), workflow.Dependencies{}, nil)
	if err := m.Start(context.Background()); !errors.Is(err, workflow.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to workflow.State
		want     bool
	}{
		{workflow.StateDiscovered, workflow.StateProbed, true},
		{workflow.StateProbed, workflow.StatePolicyResolved, true},
		{workflow.StatePolicyResolved, workflow.StateDispatched, true},
		{workflow.StateDispatched, workflow.StateCompleted, true},
		{workflow.StateDispatched, workflow.StateFailed, true},
		{workflow.StateDiscovered, workflow.StateFailed, true},
		{workflow.StateProbed, workflow.StateDiscovered, false},
		{workflow.StateDiscovered, workflow.StateDispatched, false},
		{workflow.StateCompleted, workflow.StateFailed, false},
		{workflow.StateFailed, workflow.StateDiscovered, false},
	}
	for _, tt := range tests {
		if got := workflow.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
