package encoding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEncodeProcess marks an av1an run that exited non-zero.
	ErrEncodeProcess = errors.New("encoder exited with failure")
	// ErrSpawn marks an encoder that could not be started at all. Every later
	// job would fail the same way, so the workflow treats it as fatal.
	ErrSpawn = errors.New("encoder could not be started")
)

// ProcessError describes a failed encoder run.
type ProcessError struct {
	ExitCode int
	Tail     []string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("av1an exited with code %d", e.ExitCode)
	if len(e.Tail) > 0 {
		msg += ": " + strings.Join(e.Tail, " | ")
	}
	return msg
}

func (e *ProcessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEncodeProcess}
	}
	return []error{ErrEncodeProcess, e.Err}
}
