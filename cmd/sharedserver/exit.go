package main

import (
	"errors"

	"github.com/sharedserver/sharedserver"
)

// exitCodeErr lets a command's RunE report a specific process exit code
// without cobra ever seeing anything but a plain error.
type exitCodeErr struct {
	code int
	err  error
}

func (e *exitCodeErr) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitCodeErr) Unwrap() error {
	return e.err
}

// withExitCode wraps err (possibly nil) so the top-level handler exits with
// code regardless of whether the command considers this outcome an error.
// check's Grace/Stopped results use this with a nil err: a nonzero exit
// code with nothing printed to stderr.
func withExitCode(code int, err error) error {
	if code == sharedserver.ExitOK && err == nil {
		return nil
	}
	return &exitCodeErr{code: code, err: err}
}

// exitCodeFromError recovers the intended process exit code: an explicit
// exitCodeErr wins, otherwise it falls back to the package's generic
// error-to-exit-code mapping.
func exitCodeFromError(err error) int {
	if err == nil {
		return sharedserver.ExitOK
	}
	var ec *exitCodeErr
	if errors.As(err, &ec) {
		return ec.code
	}
	return sharedserver.ExitCodeForError(err)
}
