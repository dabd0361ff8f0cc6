// Package observability groups the logging and tracing setup shared by the
// metrics app and the deploy CLI. Request metrics live next to the HTTP
// handlers they measure, in internal/handler/http.
//
// Subpackages:
//   - logging: slog logger construction and context propagation
//   - tracing: OpenTelemetry tracer provider and HTTP server spans
package observability
