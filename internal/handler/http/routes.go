// Package http serves the demo app: a greeting endpoint, health probes and a
// Prometheus /metrics endpoint, wrapped in logging, tracing and request metrics.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"monitoring-app/internal/handler/http/requestid"
	"monitoring-app/internal/observability/logging"
	"monitoring-app/internal/observability/tracing"
)

// Greeting is the body returned by GET /.
const Greeting = "Hello from the monitoring demo app!"

// RouterConfig carries the dependencies of the app's HTTP handler.
type RouterConfig struct {
	Logger    *slog.Logger
	Readiness *Readiness
	Version   string
}

// NewRouter builds the app's handler.
// Middleware order, outermost first: request ID, recover, tracing, logging, metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", greetingHandler)
	mux.Handle("GET /health", &LiveHandler{Version: cfg.Version})
	mux.Handle("GET /ready", &ReadyHandler{Readiness: cfg.Readiness})
	mux.Handle("GET /metrics", MetricsHandler())

	var h http.Handler = mux
	h = MetricsMiddleware(h)
	h = Logging(logger)(h)
	h = tracing.Middleware(h)
	h = Recover(logger)(h)
	h = requestid.Middleware(h)
	return h
}

func greetingHandler(w http.ResponseWriter, r *http.Request) {
	logging.FromContext(r.Context()).Debug("greeting served")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, Greeting)
}
