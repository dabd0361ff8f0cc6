package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"monitoring-app/internal/observability/tracing"
)

// unmatchedPath is the path label for requests that hit no registered route.
const unmatchedPath = "unmatched"

var (
	// httpRequestsTotal is the request counter the Grafana dashboard is built on.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// MetricsMiddleware records request count, latency and in-flight requests.
//
// The path label is the ServeMux pattern that matched the request, so it must
// wrap the *http.ServeMux directly: the mux records the pattern on the same
// *http.Request it receives. Requests that match no route are labelled "unmatched".
// A panicking handler is counted as a 500.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		rec := newStatusRecorder(w)
		start := time.Now()

		panicked := true
		defer func() {
			code := rec.statusCode
			if panicked {
				code = http.StatusInternalServerError
			}
			path := routeLabel(r)
			status := strconv.Itoa(code)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(rec, r)
		panicked = false
	})
}

// routeLabel turns a mux pattern such as "GET /{$}" into "/".
func routeLabel(r *http.Request) string {
	if route := tracing.Route(r.Pattern); route != "" {
		return route
	}
	return unmatchedPath
}

// MetricsHandler returns the Prometheus exposition handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
