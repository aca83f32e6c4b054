package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"av1watch/internal/audio"
	"av1watch/internal/crop"
	"av1watch/internal/encodejob"
	"av1watch/internal/encoding"
	"av1watch/internal/history"
	"av1watch/internal/logging"
	"av1watch/internal/services"
)

// jobRun tracks one pass of a file through the pipeline.
type jobRun struct {
	id      string
	path    string
	attempt int
	state   State
	logger  *slog.Logger
}

// processFile runs the pipeline for one path. Per-file failures are recorded
// and swallowed; the returned error is non-nil only when the worker must stop.
func (m *Manager) processFile(ctx context.Context, path string) error {
	run := &jobRun{id: m.newID(), path: path, attempt: m.nextAttempt(path)}
	ctx = services.WithJobID(ctx, run.id)
	run.logger = logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldPath, path))
	m.setCurrent(path)
	requeued := false
	defer func() {
		m.setCurrent("")
		if !requeued {
			m.clearAttempts(path)
		}
	}()

	m.transition(ctx, run, StateDiscovered, transitionDetail{detail: fmt.Sprintf("attempt %d", run.attempt)})

	// Probe
	stageCtx := services.WithStage(ctx, "probe")
	result, err := m.deps.Prober.Probe(stageCtx, path)
	if err != nil {
		m.fail(ctx, run, err, transitionDetail{})
		return nil
	}
	m.transition(ctx, run, StateProbed, transitionDetail{
		detail: fmt.Sprintf("%d audio tracks, video %s", len(result.Audio), result.Video.Format),
	})

	// Policy
	stageCtx = services.WithStage(ctx, "policy")
	policyLogger := logging.WithContext(stageCtx, m.logger).With(logging.String(logging.FieldPath, path))
	audioOptions, decisions, err := audio.BuildOptions(result.Audio)
	if err != nil {
		m.fail(ctx, run, err, transitionDetail{})
		return nil
	}
	audio.LogDecisions(policyLogger, decisions)

	cropResult := crop.Result{Reason: "crop detection not configured"}
	if m.deps.Crop != nil {
		cropResult, err = m.deps.Crop.Detect(services.WithStage(ctx, "crop"), path, result.Video.DurationSeconds)
		if err != nil {
			m.fail(ctx, run, fmt.Errorf("interrupted during crop detection: %w", err), transitionDetail{})
			return nil
		}
	}
	m.transition(ctx, run, StatePolicyResolved, transitionDetail{
		detail: policySummary(decisions, cropResult),
	})

	// Build
	job, err := encodejob.Build(encodejob.Inputs{
		JobID:        run.id,
		Probe:        result,
		AudioOptions: audioOptions,
		CropFilter:   cropResult.Filter,
		Config:       m.cfg,
	})
	if err != nil {
		m.fail(ctx, run, err, transitionDetail{})
		return nil
	}
	m.transition(ctx, run, StateDispatched, transitionDetail{
		detail:        job.CommandLine(),
		outputPath:    job.OutputPath,
		presetVersion: job.PresetVersion,
	})

	// Encode
	encodeResult, err := m.deps.Encoder.Run(services.WithStage(ctx, "encode"), job)
	exitCode := encodeResult.ExitCode
	if err != nil {
		done := transitionDetail{outputPath: job.OutputPath, presetVersion: job.PresetVersion}
		if errors.Is(err, encoding.ErrEncodeProcess) {
			done.exitCode = &exitCode
		}
		m.fail(ctx, run, err, done)
		if errors.Is(err, encoding.ErrSpawn) {
			return err
		}
		if errors.Is(err, encoding.ErrEncodeProcess) {
			requeued = m.maybeRequeue(run)
		}
		return nil
	}

	m.transition(ctx, run, StateCompleted, transitionDetail{
		detail:        fmt.Sprintf("encoded in %s", encodeResult.Duration.Round(time.Second)),
		outcome:       services.OutcomeSucceeded,
		outputPath:    job.OutputPath,
		presetVersion: job.PresetVersion,
		exitCode:      &exitCode,
	})
	return nil
}

type transitionDetail struct {
	detail        string
	outcome       string
	outputPath    string
	presetVersion string
	exitCode      *int
}

func (m *Manager) transition(ctx context.Context, run *jobRun, to State, d transitionDetail) {
	if run.state != "" && !CanTransition(run.state, to) {
		run.logger.Error("invalid state transition ignored",
			logging.String("from", string(run.state)),
			logging.String("to", string(to)),
			logging.String(logging.FieldEventType, "invalid_transition"),
		)
		return
	}
	run.state = to

	attrs := []logging.Attr{
		logging.String("state", string(to)),
		logging.Int("attempt", run.attempt),
	}
	if d.detail != "" {
		attrs = append(attrs, logging.String("detail", d.detail))
	}
	if d.outcome != "" {
		attrs = append(attrs, logging.String("outcome", d.outcome))
	}
	if d.outputPath != "" {
		attrs = append(attrs, logging.String(logging.FieldOutputPath, d.outputPath))
	}
	if d.exitCode != nil {
		attrs = append(attrs, logging.Int("exit_code", *d.exitCode))
	}
	if to != StateFailed {
		run.logger.Info("job "+string(to), logging.Args(attrs...)...)
	}
	if to.Terminal() {
		m.recordOutcome(run.path, d.outcome)
	}

	if m.deps.History == nil {
		return
	}
	err := m.deps.History.Record(context.WithoutCancel(ctx), history.Transition{
		JobID:         run.id,
		SessionID:     m.sessionID,
		SourcePath:    run.path,
		State:         string(to),
		Outcome:       d.outcome,
		Detail:        d.detail,
		OutputPath:    d.outputPath,
		ExitCode:      d.exitCode,
		Attempt:       run.attempt,
		PresetVersion: d.presetVersion,
	})
	if err != nil {
		logging.WarnWithContext(run.logger, "failed to record job transition", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database in state_dir"),
			logging.String(logging.FieldImpact, "job history is incomplete; encoding continues"),
		)
	}
}

func (m *Manager) fail(ctx context.Context, run *jobRun, err error, d transitionDetail) {
	d.outcome = services.FailureOutcome(err)
	if errors.Is(err, encoding.ErrEncodeProcess) {
		d.outcome = services.OutcomeEncodeFailed
	}
	d.detail = err.Error()
	m.setLastError(run.path, err)

	attrs := []logging.Attr{
		logging.Error(err),
		logging.String("state", string(StateFailed)),
		logging.String("failed_after", string(run.state)),
		logging.String("outcome", d.outcome),
		logging.String(logging.FieldErrorHint, failureHint(err)),
	}
	if d.exitCode != nil {
		attrs = append(attrs, logging.Int("exit_code", *d.exitCode))
	}
	logging.ErrorWithContext(run.logger, "job failed", "job_failed", attrs...)
	m.transition(ctx, run, StateFailed, d)
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, audio.ErrUnsupportedChannelLayout):
		return "no Opus bitrate is defined for this channel count; remux or drop the track"
	case errors.Is(err, encoding.ErrSpawn):
		return "check encoder.binary and that av1an is on PATH"
	case errors.Is(err, encoding.ErrEncodeProcess):
		return "inspect the av1an output above; rerun keeps finished chunks when resume is enabled"
	case errors.Is(err, services.ErrNotFound):
		return "the file was removed before it could be processed"
	case errors.Is(err, services.ErrValidation):
		return "the file has no usable tracks"
	default:
		return "check logs for details"
	}
}

func policySummary(decisions []audio.Decision, cropResult crop.Result) string {
	parts := make([]string, 0, len(decisions)+1)
	for _, d := range decisions {
		if d.Action == audio.ActionTranscode {
			parts = append(parts, fmt.Sprintf("a%d opus %dk", d.Index, d.BitrateKbps))
		} else {
			parts = append(parts, fmt.Sprintf("a%d copy", d.Index))
		}
	}
	if cropResult.Applied() {
		parts = append(parts, cropResult.Filter)
	} else {
		parts = append(parts, "no crop")
	}
	return strings.Join(parts, ", ")
}

func (m *Manager) nextAttempt(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[path]++
	return m.attempts[path]
}

func (m *Manager) clearAttempts(path string) {
	m.mu.Lock()
	delete(m.attempts, path)
	m.mu.Unlock()
}

// maybeRequeue pushes a failed encode back onto the queue when the retry
// policy allows another attempt.
func (m *Manager) maybeRequeue(run *jobRun) bool {
	enc := m.cfg.Encoder
	if !enc.RetryOnFailure || run.attempt >= enc.MaxAttempts {
		return false
	}
	if !m.deps.Queue.Push(run.path) {
		return false
	}
	run.logger.Info("requeued failed encode",
		logging.Int("attempt", run.attempt),
		logging.Int("max_attempts", enc.MaxAttempts),
	)
	return true
}
