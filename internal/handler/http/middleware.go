package http

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"monitoring-app/internal/handler/http/respond"
	"monitoring-app/internal/observability/logging"

	"go.opentelemetry.io/otel/trace"
)

// Logging logs one structured line per completed request.
// The request ID and the OpenTelemetry trace ID are included when present.
// A request whose handler panics is logged with status 500 before the panic
// continues to Recover.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			panicked := true
			defer func() {
				status := rec.statusCode
				if panicked {
					status = http.StatusInternalServerError
				}
				l := logging.WithRequestID(r.Context(), logger)
				attrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", rec.bytesWritten),
					slog.Duration("duration", time.Since(start)),
					slog.String("remote_addr", r.RemoteAddr),
				}
				if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
					attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
				}
				l.Info("request completed", attrs...)
			}()

			next.ServeHTTP(rec, r)
			panicked = false
		})
	}
}

// Recover turns a panic in the handler chain into a 500 response.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.WithRequestID(r.Context(), logger).Error("panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				respond.Error(w, http.StatusInternalServerError, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
