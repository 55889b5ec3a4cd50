package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/monitoring"
)

// HealthHandler serves liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager(0)
	}
	return &HealthHandler{manager: manager}
}

// Health handles GET /health with every probe.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := requestContext(c)
	report := monitoring.MergeReports(h.manager.EvaluateLiveness(ctx), h.manager.EvaluateReadiness(ctx))
	c.JSON(statusFor(report), report)
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	report := h.manager.EvaluateLiveness(requestContext(c))
	c.JSON(statusFor(report), report)
}

// Ready handles GET /health/ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	report := h.manager.EvaluateReadiness(requestContext(c))
	c.JSON(statusFor(report), report)
}

// statusFor keeps a degraded portal in rotation; only a down probe fails it.
func statusFor(report monitoring.HealthReport) int {
	if report.Status == monitoring.StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
