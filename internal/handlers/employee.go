package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/insurai/portal/internal/claims"
	"github.com/insurai/portal/internal/services"
	appErrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/response"
)

// EmployeeHandler serves the employee dashboard API.
type EmployeeHandler struct {
	sessionAware
	svc *services.EmployeeService
}

// NewEmployeeHandler constructs an EmployeeHandler.
func NewEmployeeHandler(svc *services.EmployeeService, auth *services.AuthService) *EmployeeHandler {
	return &EmployeeHandler{sessionAware: sessionAware{auth: auth}, svc: svc}
}

// claimRequest is the claim form. Required fields are checked by the claims
// engine so every failure carries the same field details.
type claimRequest struct {
	PolicyID    int64           `json:"policyId"`
	Title       string          `json:"title"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ClaimDate   string          `json:"claimDate"`
	Documents   []string        `json:"documents"`
}

type askQueryRequest struct {
	AgentID   int64  `json:"agentId"`
	QueryText string `json:"queryText"`
	ClaimType string `json:"claimType"`
	PolicyID  int64  `json:"policyId"`
}

// Dashboard handles GET /api/employee/dashboard.
func (h *EmployeeHandler) Dashboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	dashboard, err := h.svc.Dashboard(requestContext(c), p)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, dashboard)
}

// Policies handles GET /api/employee/policies.
func (h *EmployeeHandler) Policies(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	policies, err := h.svc.Policies(requestContext(c), p)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, policies)
}

// Claims handles GET /api/employee/claims.
func (h *EmployeeHandler) Claims(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	items, err := h.svc.Claims(requestContext(c), p)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// SubmitClaim handles POST /api/employee/claims.
func (h *EmployeeHandler) SubmitClaim(c *gin.Context) {
	h.saveClaim(c, 0, http.StatusCreated)
}

// UpdateClaim handles PUT /api/employee/claims/:id.
func (h *EmployeeHandler) UpdateClaim(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.saveClaim(c, id, http.StatusOK)
}

func (h *EmployeeHandler) saveClaim(c *gin.Context, id int64, status int) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req claimRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claimDate, err := parseClaimDate(req.ClaimDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.SubmitClaim(requestContext(c), p, claims.Submission{
		ID:          id,
		PolicyID:    req.PolicyID,
		Title:       req.Title,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		ClaimDate:   claimDate,
		Documents:   req.Documents,
	})
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, status, result)
}

// Queries handles GET /api/employee/queries.
func (h *EmployeeHandler) Queries(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	queries, err := h.svc.Queries(requestContext(c), p)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, queries)
}

// Agents handles GET /api/employee/agents.
func (h *EmployeeHandler) Agents(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	agents, err := h.svc.AvailableAgents(requestContext(c))
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, agents)
}

// AskQuery handles POST /api/employee/queries.
func (h *EmployeeHandler) AskQuery(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req askQueryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	query, err := h.svc.AskQuery(requestContext(c), p, services.AskQueryInput{
		AgentID:   req.AgentID,
		QueryText: req.QueryText,
		ClaimType: req.ClaimType,
		PolicyID:  req.PolicyID,
	})
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusCreated, query)
}

// parseClaimDate accepts the date input format and RFC 3339. Empty is left
// for the claims engine to report as missing.
func parseClaimDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, appErrors.NewValidation("claimDate must be a date (YYYY-MM-DD)").
		WithDetails(map[string]any{"field": "claimDate"})
}
