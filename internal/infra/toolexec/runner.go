// Package toolexec runs the external command-line tools the deploy pipeline
// drives (docker, k3d, kubectl, helm) and maps their failures to typed errors.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Command is one invocation of an external tool.
type Command struct {
	Name  string
	Args  []string
	Stdin io.Reader
}

// String renders the command line as it would be typed in a shell.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"$`\\|&;<>()*?") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// Runner executes commands.
type Runner interface {
	// Run executes cmd and streams its combined stdout and stderr.
	// A non-zero exit yields an *ExitError.
	Run(ctx context.Context, cmd Command) error

	// Output executes cmd without streaming and returns its stdout.
	// A non-zero exit yields an *ExitError carrying the captured stderr.
	Output(ctx context.Context, cmd Command) ([]byte, error)

	// LookPath reports the resolved path of an executable, or an error
	// wrapping ErrToolNotFound.
	LookPath(name string) (string, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	// Out receives the echoed command line and the streamed tool output.
	Out    io.Writer
	Logger *slog.Logger
}

// NewExecRunner returns an ExecRunner streaming to out.
func NewExecRunner(out io.Writer, logger *slog.Logger) *ExecRunner {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{Out: out, Logger: logger}
}

// waitDelay bounds how long a canceled command's grandchildren may hold the
// output pipes open.
const waitDelay = 2 * time.Second

// tailSize bounds how much streamed output is retained for error messages.
const tailSize = 4 << 10

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	fmt.Fprintf(r.Out, "\nExecuting: %s\n", cmd)

	tail := &tailBuffer{max: tailSize}
	out := io.MultiWriter(r.Out, tail)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Stdin = cmd.Stdin
	c.Stdout = out
	c.Stderr = out
	c.WaitDelay = waitDelay

	start := time.Now()
	err := c.Run()
	r.Logger.Debug("command finished",
		slog.String("command", cmd.String()),
		slog.Duration("duration", time.Since(start)),
		slog.Any("error", err))

	return r.classify(ctx, cmd, err, tail.String())
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Stdin = cmd.Stdin
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = waitDelay

	err := c.Run()
	r.Logger.Debug("probe finished",
		slog.String("command", cmd.String()),
		slog.Any("error", err))

	return stdout.Bytes(), r.classify(ctx, cmd, err, stderr.String())
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return path, nil
}

func (r *ExecRunner) classify(ctx context.Context, cmd Command, err error, output string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrToolNotFound, cmd.Name)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", cmd, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: cmd.String(), Code: exitErr.ExitCode(), Output: strings.TrimSpace(output)}
	}
	return fmt.Errorf("%s: %w", cmd, err)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
