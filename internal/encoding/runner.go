package encoding

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"av1watch/internal/encodejob"
	"av1watch/internal/logging"
	"av1watch/internal/services"
)

var commandContext = exec.CommandContext

const tailLines = 8

var percentPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`)

// Result describes a finished encoder process.
type Result struct {
	JobID      string
	OutputPath string
	ExitCode   int
	Duration   time.Duration
}

// Runner launches av1an for a job and waits for it to exit.
type Runner struct {
	Logger *slog.Logger
	// ProgressBucket is the percentage step between logged progress lines.
	ProgressBucket float64

	mu      sync.Mutex
	current *exec.Cmd
	now     func() time.Time
}

// NewRunner constructs a runner logging through logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{Logger: logging.NewComponentLogger(logger, "encoder"), ProgressBucket: 5}
}

// Run starts the encoder, streams its output and blocks until it exits.
// Cancelling ctx does not stop the process; call Abort for that.
func (r *Runner) Run(ctx context.Context, job encodejob.Job) (Result, error) {
	logger := logging.WithContext(ctx, r.logger())
	result := Result{JobID: job.ID, OutputPath: job.OutputPath, ExitCode: -1}

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "encode", "prepare output", "create output directory", fmt.Errorf("%w: %w", ErrSpawn, err))
	}

	cmd := commandContext(context.WithoutCancel(ctx), job.Binary(), job.Args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "encode", "pipe output", "attach encoder output", fmt.Errorf("%w: %w", ErrSpawn, err))
	}
	cmd.Stderr = cmd.Stdout

	logger.Info(
		"launching av1an",
		logging.String(logging.FieldPath, job.InputPath),
		logging.String(logging.FieldOutputPath, job.OutputPath),
		logging.String("command", job.CommandLine()),
		logging.String("preset_version", job.PresetVersion),
	)

	started := r.clock()
	if err := cmd.Start(); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "encode", "start", "launch "+job.Binary(), fmt.Errorf("%w: %w", ErrSpawn, err))
	}
	r.track(cmd)
	defer r.track(nil)

	tail := r.stream(logger, stdout)
	waitErr := cmd.Wait()
	result.Duration = r.clock().Sub(started)
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if waitErr != nil {
		perr := &ProcessError{ExitCode: result.ExitCode, Tail: tail}
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			perr.Err = waitErr
		}
		return result, services.Wrap(services.ErrExternalTool, "encode", "av1an", "encode did not complete", perr)
	}

	logger.Info(
		"av1an finished",
		logging.String(logging.FieldOutputPath, job.OutputPath),
		logging.Int("exit_code", result.ExitCode),
		logging.Duration("elapsed", result.Duration),
	)
	return result, nil
}

// Abort kills the running encoder, if any.
func (r *Runner) Abort() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.Process == nil {
		return false
	}
	if err := r.current.Process.Kill(); err != nil {
		return false
	}
	return true
}

// Active reports whether an encoder process is running.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

func (r *Runner) track(cmd *exec.Cmd) {
	r.mu.Lock()
	r.current = cmd
	r.mu.Unlock()
}

func (r *Runner) stream(logger *slog.Logger, output io.Reader) []string {
	sampler := logging.NewProgressSampler(r.ProgressBucket)
	scanner := bufio.NewScanner(output)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanTerminalLines)

	tail := make([]string, 0, tailLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(tail) == tailLines {
			tail = append(tail[:0], tail[1:]...)
		}
		tail = append(tail, line)

		percent, phase := parseProgress(line)
		if percent >= 0 && sampler.ShouldLog(percent, phase) {
			logger.Info(
				"encode progress",
				logging.Float64("progress_percent", percent),
				logging.String("progress_stage", phase),
			)
			continue
		}
		logger.Debug("av1an output", logging.String("line", line))
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("encoder output stream interrupted", logging.Error(err))
	}
	return tail
}

// parseProgress extracts the percentage and phase from an av1an status line.
// Lines without a percentage return -1.
func parseProgress(line string) (float64, string) {
	match := percentPattern.FindStringSubmatch(line)
	if match == nil {
		return -1, ""
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value > 100 {
		return -1, ""
	}
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "scene"):
		return value, "scene_detection"
	case strings.Contains(lower, "concat"):
		return value, "concatenate"
	default:
		return value, "encode"
	}
}

// scanTerminalLines splits on newlines and on bare carriage returns, which
// progress bars use to redraw in place.
func scanTerminalLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (r *Runner) logger() *slog.Logger {
	if r == nil || r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}
