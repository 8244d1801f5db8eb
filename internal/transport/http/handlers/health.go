package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck probes one dependency. It must respect the supplied context deadline.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	startedAt time.Time
	checks    map[string]ReadinessCheck
	timeout   time.Duration
}

// HealthOption customizes the handler.
type HealthOption func(*HealthHandler)

// WithReadinessCheck registers a named dependency probe run on every readiness request.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandler) {
		if name != "" && check != nil {
			h.checks[name] = check
		}
	}
}

// WithCheckTimeout overrides the per-request readiness deadline.
func WithCheckTimeout(timeout time.Duration) HealthOption {
	return func(h *HealthHandler) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// NewHealthHandler constructs HealthHandler.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		startedAt: time.Now(),
		checks:    make(map[string]ReadinessCheck),
		timeout:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Status godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
		Timestamp: time.Now().UTC(),
	})
}

// Readiness godoc
// @Summary Readiness probe
// @Description Runs the registered dependency checks; any failure yields 503.
// @Tags Health
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	resp := ReadyResponse{
		Status:    "ready",
		Checks:    results,
		Timestamp: time.Now().UTC(),
	}

	status := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}
