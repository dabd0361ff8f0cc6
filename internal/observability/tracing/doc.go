// Package tracing provides OpenTelemetry tracing for the metrics app.
//
// The app installs an SDK tracer provider at startup so that every request
// carries a real trace ID. No exporter is configured by default; the trace ID
// is surfaced through the X-Trace-Id response header and the request log.
package tracing
