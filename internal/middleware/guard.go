package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/insurai/portal/internal/auth"
	apperrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/logger"
	"github.com/insurai/portal/pkg/metrics"
	"github.com/insurai/portal/pkg/response"
)

// LandingPath is where rejected navigations are sent.
const LandingPath = "/"

// RequireRoute checks the principal's role against the route tree policy.
// It must run after Auth. Denied HTML navigations are redirected to the
// landing page; API clients receive 403 with the same redirect hint.
func RequireRoute(guard *iauth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			metrics.GuardDecisions.WithLabelValues("anonymous", "deny").Inc()
			unauthenticated(c)
			return
		}

		role := principal.Role.String()
		allowed, err := guard.Allow(role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			logger.WithModule("guard").Error("route guard failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}
		if !allowed {
			metrics.GuardDecisions.WithLabelValues(role, "deny").Inc()
			if wantsHTML(c) {
				redirectToLanding(c)
				return
			}
			response.ErrorWithMeta(c, apperrors.ErrForbidden, &response.Meta{Redirect: LandingPath})
			c.Abort()
			return
		}

		metrics.GuardDecisions.WithLabelValues(role, "allow").Inc()
		c.Next()
	}
}

func wantsHTML(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet {
		return false
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.HasPrefix(c.Request.URL.Path, "/api/")
}

func redirectToLanding(c *gin.Context) {
	c.Redirect(http.StatusFound, LandingPath)
	c.Abort()
}
