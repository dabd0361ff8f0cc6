package http

import (
	"net/http"
	"sync/atomic"

	"monitoring-app/internal/handler/http/respond"
)

// HealthResponse is the JSON body of the probe endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Readiness reports whether the app should receive traffic.
// It starts not ready; the server marks it ready once listening and clears it
// before draining.
type Readiness struct {
	ready atomic.Bool
}

// SetReady updates the readiness state.
func (r *Readiness) SetReady(ready bool) {
	r.ready.Store(ready)
}

// IsReady returns the current readiness state.
func (r *Readiness) IsReady() bool {
	return r.ready.Load()
}

// LiveHandler serves the liveness probe. It always returns 200.
type LiveHandler struct {
	Version string
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: h.Version})
}

// ReadyHandler serves the readiness probe: 200 when ready, 503 otherwise.
type ReadyHandler struct {
	Readiness *Readiness
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if h.Readiness == nil || !h.Readiness.IsReady() {
		respond.JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
		return
	}
	respond.JSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}
