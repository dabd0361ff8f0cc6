package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"monitoring-app/internal/handler/http/requestid"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTestRouter(ready bool) (http.Handler, *bytes.Buffer) {
	var buf bytes.Buffer
	readiness := &Readiness{}
	readiness.SetReady(ready)
	return NewRouter(RouterConfig{Logger: jsonLogger(&buf), Readiness: readiness, Version: "test"}), &buf
}

func TestRouter_Greeting(t *testing.T) {
	router, _ := newTestRouter(true)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, Greeting+"\n", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(requestid.RequestIDHeader))
}

func TestRouter_Probes(t *testing.T) {
	tests := []struct {
		name   string
		ready  bool
		path   string
		status int
		body   string
	}{
		{name: "liveness", ready: false, path: "/health", status: http.StatusOK, body: `{"status":"healthy","version":"test"}`},
		{name: "ready", ready: true, path: "/ready", status: http.StatusOK, body: `{"status":"ready"}`},
		{name: "not ready", ready: false, path: "/ready", status: http.StatusServiceUnavailable, body: `{"status":"not ready"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(tt.ready)
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rr.Code)
			assert.JSONEq(t, tt.body, rr.Body.String())
		})
	}
}

func TestRouter_MetricsEndpointExposesRequestCount(t *testing.T) {
	httpRequestsTotal.Reset()
	router, _ := newTestRouter(true)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/",status="200"} 1`)
}

func TestRouter_MethodNotAllowedIsUnmatched(t *testing.T) {
	httpRequestsTotal.Reset()
	router, _ := newTestRouter(true)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health", strings.NewReader("{}")))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", unmatchedPath, "405")))
}

func TestRouter_LogsTraceID(t *testing.T) {
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	router, buf := newTestRouter(true)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Contains(t, buf.String(), `"trace_id":"`+rr.Header().Get("X-Trace-Id")+`"`)
}
