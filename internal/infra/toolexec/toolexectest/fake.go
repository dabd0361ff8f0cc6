// Package toolexectest provides a scripted toolexec.Runner for tests.
package toolexectest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"monitoring-app/internal/infra/toolexec"
)

// Response is the scripted outcome of a command.
type Response struct {
	Output []byte
	Err    error
}

// Call is one recorded invocation.
type Call struct {
	Command toolexec.Command
	// Stdin holds what the command would have read from standard input.
	Stdin string
	Quiet bool
}

// Runner records every command and answers from a script keyed by
// command-line prefix. Unscripted commands succeed with no output.
type Runner struct {
	mu        sync.Mutex
	calls     []Call
	responses []scripted
	// Missing lists tools that LookPath reports as absent.
	Missing map[string]bool
}

type scripted struct {
	prefix string
	resp   Response
}

// New returns an empty Runner.
func New() *Runner {
	return &Runner{Missing: map[string]bool{}}
}

// On scripts resp for every command whose String() starts with prefix.
// Later registrations win over earlier ones.
func (r *Runner) On(prefix string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, scripted{prefix: prefix, resp: resp})
	return r
}

// Fail scripts a non-zero exit for commands starting with prefix.
func (r *Runner) Fail(prefix string, code int, output string) *Runner {
	return r.On(prefix, Response{Err: &toolexec.ExitError{Command: prefix, Code: code, Output: output}})
}

// Run implements toolexec.Runner.
func (r *Runner) Run(_ context.Context, cmd toolexec.Command) error {
	return r.record(cmd, false).Err
}

// Output implements toolexec.Runner.
func (r *Runner) Output(_ context.Context, cmd toolexec.Command) ([]byte, error) {
	resp := r.record(cmd, true)
	return resp.Output, resp.Err
}

// LookPath implements toolexec.Runner.
func (r *Runner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Missing[name] {
		return "", fmt.Errorf("%w: %s", toolexec.ErrToolNotFound, name)
	}
	return "/usr/local/bin/" + name, nil
}

func (r *Runner) record(cmd toolexec.Command, quiet bool) Response {
	call := Call{Command: cmd, Quiet: quiet}
	if cmd.Stdin != nil {
		b, _ := io.ReadAll(cmd.Stdin)
		call.Stdin = string(b)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)

	line := cmd.String()
	for i := len(r.responses) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, r.responses[i].prefix) {
			return r.responses[i].resp
		}
	}
	return Response{}
}

// Calls returns the recorded invocations in order.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns the recorded command lines in order.
func (r *Runner) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Command.String()
	}
	return lines
}
