package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/services"
	"github.com/insurai/portal/pkg/response"
)

// HRHandler serves the HR claim review API.
type HRHandler struct {
	sessionAware
	svc *services.HRService
}

// NewHRHandler constructs an HRHandler.
func NewHRHandler(svc *services.HRService, auth *services.AuthService) *HRHandler {
	return &HRHandler{sessionAware: sessionAware{auth: auth}, svc: svc}
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required"`
	Remarks  string `json:"remarks"`
}

type bulkDecisionRequest struct {
	IDs      []int64 `json:"ids" validate:"required,min=1"`
	Decision string  `json:"decision" validate:"required"`
	Remarks  string  `json:"remarks"`
}

// Claims handles GET /api/hr/claims?status=&search=.
func (h *HRHandler) Claims(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	result, err := h.svc.Claims(requestContext(c), p, services.HRClaimFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	})
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Decide handles POST /api/hr/claims/:id/decision.
func (h *HRHandler) Decide(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	target, err := services.ParseDecision(req.Decision)
	if err != nil {
		response.Error(c, err)
		return
	}

	claim, err := h.svc.Decide(requestContext(c), p, id, target, req.Remarks)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, claim)
}

// BulkDecide handles POST /api/hr/claims/decisions. Per-claim failures are
// reported in the results rather than failing the request.
func (h *HRHandler) BulkDecide(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req bulkDecisionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	target, err := services.ParseDecision(req.Decision)
	if err != nil {
		response.Error(c, err)
		return
	}

	results, err := h.svc.BulkDecide(requestContext(c), p, req.IDs, target, req.Remarks)
	if results == nil {
		h.fail(c, p, err)
		return
	}
	if err != nil && h.endIfExpired(c, p, err) {
		return
	}

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}
	response.Success(c, http.StatusOK, gin.H{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

// FraudRisk handles GET /api/hr/fraud-risk.
func (h *HRHandler) FraudRisk(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	score, err := h.svc.FraudRiskScore(requestContext(c), p)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"fraudRiskScore": score})
}
