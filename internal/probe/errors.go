package probe

import (
	"errors"
	"fmt"
)

// ErrProbe matches every probe failure.
var ErrProbe = errors.New("probe failed")

// Error reports a file that cannot be parsed as a supported container.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("probe %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProbe}
	}
	return []error{ErrProbe, e.Err}
}

func newError(path, reason string, err error) *Error {
	return &Error{Path: path, Reason: reason, Err: err}
}
