package crop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// commandContext is replaced in tests to run a helper process.
var commandContext = exec.CommandContext

// SampleRunner runs one crop analysis pass and returns its diagnostic output.
type SampleRunner interface {
	Sample(ctx context.Context, path string, timestamp float64, frames int) (string, error)
}

// FFmpegRunner runs ffmpeg's cropdetect filter.
type FFmpegRunner struct {
	Binary string
}

// Args returns the ffmpeg arguments for one sample.
func (r FFmpegRunner) Args(path string, timestamp float64, frames int) []string {
	return []string{
		"-hide_banner", "-nostats",
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", path,
		"-frames:v", strconv.Itoa(frames),
		"-vf", "cropdetect",
		"-f", "null", "-",
	}
}

// Sample implements SampleRunner. cropdetect reports on stderr.
func (r FFmpegRunner) Sample(ctx context.Context, path string, timestamp float64, frames int) (string, error) {
	binary := strings.TrimSpace(r.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := commandContext(ctx, binary, r.Args(path, timestamp, frames)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("cropdetect at %.3fs: %w", timestamp, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("cropdetect at %.3fs: exit %d: %s", timestamp, exitErr.ExitCode(), lastLine(stderr.String()))
		}
		return "", fmt.Errorf("cropdetect at %.3fs: %w", timestamp, err)
	}
	return stderr.String(), nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
