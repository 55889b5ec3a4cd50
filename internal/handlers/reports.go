package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/services"
	"github.com/insurai/portal/pkg/response"
)

// ReportHandler generates exports and serves the per-user history.
type ReportHandler struct {
	sessionAware
	svc *services.ReportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc *services.ReportService, auth *services.AuthService) *ReportHandler {
	return &ReportHandler{sessionAware: sessionAware{auth: auth}, svc: svc}
}

type generateReportRequest struct {
	Kind   string `json:"kind" validate:"required"`
	Format string `json:"format"`
	Status string `json:"status"`
}

// Kinds handles GET /api/reports/kinds.
func (h *ReportHandler) Kinds(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"kinds":   services.ReportKinds(p.Role),
		"formats": []string{"csv", "pdf"},
	})
}

// Generate handles POST /api/reports and streams the rendered file.
func (h *ReportHandler) Generate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req generateReportRequest
	if !bindAndValidate(c, &req) {
		return
	}

	out, err := h.svc.Generate(requestContext(c), p, services.GenerateReportInput{
		Kind:   req.Kind,
		Format: req.Format,
		Status: req.Status,
	})
	if err != nil {
		h.fail(c, p, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	c.Header("X-Report-ID", out.Record.ID)
	c.Data(http.StatusOK, out.ContentType, out.Content)
}

// History handles GET /api/reports/history.
func (h *ReportHandler) History(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	records, err := h.svc.History(requestContext(c), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, records, &response.Meta{Total: len(records)})
}

// ClearHistory handles DELETE /api/reports/history.
func (h *ReportHandler) ClearHistory(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	removed, err := h.svc.ClearHistory(requestContext(c), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}
