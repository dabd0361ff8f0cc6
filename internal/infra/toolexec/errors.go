package toolexec

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned when an executable is not on PATH.
var ErrToolNotFound = errors.New("required tool is not installed or not in PATH")

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Command string
	Code    int
	// Output is the captured stderr (Output) or the tail of the streamed
	// output (Run).
	Output string
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("command %q failed with exit code %d", e.Command, e.Code)
	}
	return fmt.Sprintf("command %q failed with exit code %d: %s", e.Command, e.Code, lastLine(e.Output))
}

// ExitCode returns the exit code carried by err, if it wraps an *ExitError.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

func lastLine(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}
