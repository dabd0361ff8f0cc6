// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with the two
// logger shapes used in this repository:
//   - JSON output for the metrics app running inside the cluster
//   - Text output for the deploy CLI running on a developer machine
//
// Example usage:
//
//	import "monitoring-app/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started", slog.String("version", "1.0"))
//	}
//
//	func handleRequest(ctx context.Context) {
//	    logger := logging.WithRequestID(ctx, slog.Default())
//	    logger.Info("processing request")
//	}
package logging
