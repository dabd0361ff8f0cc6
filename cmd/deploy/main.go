// deploy stands up and tears down the local monitoring demo: a k3d cluster
// running the metrics app, scraped by kube-prometheus-stack.
//
// Usage:
//
//	deploy                 # same as "deploy deploy"
//	deploy deploy --config stack.yaml
//	deploy status
//	deploy manifests > app.yaml
//	deploy dashboard -o dashboard.json
//	deploy cleanup
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"monitoring-app/internal/infra/toolexec"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "\n❌ Error: %v\n", err)
	return exitCode(err)
}

// exitCode returns the exit code of the tool that failed, or 1.
func exitCode(err error) int {
	if code, ok := toolexec.ExitCode(err); ok && code > 0 {
		return code
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
