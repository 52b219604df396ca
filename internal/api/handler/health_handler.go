package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler liveness and readiness probes
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler creates a HealthHandler over the named dependencies.
// Nil entries are reported as disabled.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Live always answers ok while the process serves HTTP.
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready pings every dependency. The database is required; anything else
// only degrades the status.
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	overall := "ok"
	checks := make(map[string]string, len(h.deps))
	for name, p := range h.deps {
		if p == nil {
			checks[name] = "disabled"
			continue
		}
		if err := p.Ping(ctx); err != nil {
			checks[name] = "down"
			if name == "database" {
				status, overall = http.StatusServiceUnavailable, "unavailable"
			} else if overall == "ok" {
				overall = "degraded"
			}
			continue
		}
		checks[name] = "up"
	}

	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
