package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/pkg/response"
)

// Dashboard answers navigations into a role's dashboard tree once the guard
// has admitted them. The UI renders the page from the returned principal.
func Dashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"user":      p,
			"home_path": iauth.HomePath(p.Role),
			"path":      c.Request.URL.Path,
		})
	}
}
