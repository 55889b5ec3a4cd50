package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/handlers"
	"github.com/insurai/portal/pkg/response"
)

// dashboardTrees are the UI route prefixes guarded per role.
var dashboardTrees = []string{"/employee", "/hr", "/admin", "/agent"}

func registerPageRoutes(r *gin.Engine, guarded []gin.HandlerFunc) {
	r.GET("/", landing)

	dashboard := handlers.Dashboard()
	for _, tree := range dashboardTrees {
		group := r.Group(tree, guarded...)
		group.GET("", dashboard)
		group.GET("/*path", dashboard)
	}
}

// landing is the public entry page listing each role's login endpoint.
func landing(c *gin.Context) {
	logins := make(map[string]string, len(dashboardTrees))
	for _, tree := range dashboardTrees {
		logins[tree[1:]] = "/api/auth" + tree + "/login"
	}
	response.Success(c, http.StatusOK, gin.H{"logins": logins})
}
