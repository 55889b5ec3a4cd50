package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/services"
	"github.com/insurai/portal/pkg/response"
)

// FraudHandler serves fraud alerts to HR and admin.
type FraudHandler struct {
	sessionAware
	svc *services.FraudService
}

// NewFraudHandler constructs a FraudHandler.
func NewFraudHandler(svc *services.FraudService, auth *services.AuthService) *FraudHandler {
	return &FraudHandler{sessionAware: sessionAware{auth: auth}, svc: svc}
}

// List handles GET /api/{hr,admin}/fraud-alerts?status=&flagged=&employeeId=&search=.
func (h *FraudHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	status, err := services.ParseFraudStatus(c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	alerts, err := h.svc.List(requestContext(c), services.FraudFilter{
		Status:     status,
		Flagged:    parseBoolQuery(c, "flagged"),
		EmployeeID: parseInt64Query(c, "employeeId"),
		Search:     c.Query("search"),
	})
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, alerts)
}
