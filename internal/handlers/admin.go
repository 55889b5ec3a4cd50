package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/services"
	"github.com/insurai/portal/pkg/response"
)

// AdminHandler serves the admin directory and overview.
type AdminHandler struct {
	sessionAware
	svc *services.AdminService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc *services.AdminService, auth *services.AuthService) *AdminHandler {
	return &AdminHandler{sessionAware: sessionAware{auth: auth}, svc: svc}
}

// Overview handles GET /api/admin/overview.
func (h *AdminHandler) Overview(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	overview, err := h.svc.Overview(requestContext(c))
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, overview)
}

// Employees handles GET /api/admin/employees.
func (h *AdminHandler) Employees(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	employees, err := h.svc.Employees(requestContext(c))
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, employees)
}

// HRUsers handles GET /api/admin/hr-users.
func (h *AdminHandler) HRUsers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	users, err := h.svc.HRUsers(requestContext(c))
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// Policies handles GET /api/admin/policies.
func (h *AdminHandler) Policies(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	policies, err := h.svc.Policies(requestContext(c))
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, policies)
}

// RefreshDirectories handles POST /api/admin/directories/refresh.
func (h *AdminHandler) RefreshDirectories(c *gin.Context) {
	if err := h.svc.InvalidateDirectories(requestContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"refreshed": true})
}
