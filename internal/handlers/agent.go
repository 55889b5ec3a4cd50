package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/services"
	"github.com/insurai/portal/pkg/response"
)

// AgentHandler serves the agent query queue.
type AgentHandler struct {
	sessionAware
	svc *services.AgentService
}

// NewAgentHandler constructs an AgentHandler.
func NewAgentHandler(svc *services.AgentService, auth *services.AuthService) *AgentHandler {
	return &AgentHandler{sessionAware: sessionAware{auth: auth}, svc: svc}
}

type respondRequest struct {
	Response string `json:"response" validate:"required"`
}

// Queries handles GET /api/agent/queries.
func (h *AgentHandler) Queries(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	queue, err := h.svc.Queries(requestContext(c), p)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, queue)
}

// Respond handles POST /api/agent/queries/:id/response.
func (h *AgentHandler) Respond(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req respondRequest
	if !bindAndValidate(c, &req) {
		return
	}

	query, err := h.svc.Respond(requestContext(c), p, id, req.Response)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, query)
}
