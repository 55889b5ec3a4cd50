package api

import (
	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.GET("/stream", handler.Stream)
		group.POST("/read", handler.MarkMultipleRead)
		group.POST("/:id/read", handler.MarkRead)
	}
}

func registerReportRoutes(api *gin.RouterGroup, handler *handlers.ReportHandler) {
	group := api.Group("/reports")
	{
		group.GET("/kinds", handler.Kinds)
		group.POST("", handler.Generate)
		group.GET("/history", handler.History)
		group.DELETE("/history", handler.ClearHistory)
	}
}
