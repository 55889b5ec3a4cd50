package api

import (
	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/handlers"
)

func registerPublicAuthRoutes(group *gin.RouterGroup, handler *handlers.AuthHandler, limit gin.HandlerFunc) {
	group.POST("/:role/login", limit, handler.Login)
	group.POST("/register", limit, handler.Register)
	group.POST("/forgot-password", limit, handler.ForgotPassword)
	group.POST("/reset-password", limit, handler.ResetPassword)
}
