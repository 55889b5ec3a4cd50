package api

import (
	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/handlers"
)

func registerEmployeeRoutes(api *gin.RouterGroup, handler *handlers.EmployeeHandler) {
	group := api.Group("/employee")
	{
		group.GET("/dashboard", handler.Dashboard)
		group.GET("/policies", handler.Policies)
		group.GET("/claims", handler.Claims)
		group.POST("/claims", handler.SubmitClaim)
		group.PUT("/claims/:id", handler.UpdateClaim)
		group.GET("/queries", handler.Queries)
		group.POST("/queries", handler.AskQuery)
		group.GET("/agents", handler.Agents)
	}
}

func registerHRRoutes(api *gin.RouterGroup, handler *handlers.HRHandler, fraud *handlers.FraudHandler) {
	group := api.Group("/hr")
	{
		group.GET("/claims", handler.Claims)
		group.POST("/claims/:id/decision", handler.Decide)
		group.POST("/claims/decisions", handler.BulkDecide)
		group.GET("/fraud-risk", handler.FraudRisk)
		group.GET("/fraud-alerts", fraud.List)
	}
}

func registerAgentRoutes(api *gin.RouterGroup, handler *handlers.AgentHandler) {
	group := api.Group("/agent")
	{
		group.GET("/queries", handler.Queries)
		group.POST("/queries/:id/response", handler.Respond)
	}
}

func registerAdminRoutes(api *gin.RouterGroup, handler *handlers.AdminHandler, fraud *handlers.FraudHandler) {
	group := api.Group("/admin")
	{
		group.GET("/overview", handler.Overview)
		group.GET("/employees", handler.Employees)
		group.GET("/hr-users", handler.HRUsers)
		group.GET("/policies", handler.Policies)
		group.POST("/directories/refresh", handler.RefreshDirectories)
		group.GET("/fraud-alerts", fraud.List)
	}
}
