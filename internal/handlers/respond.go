package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/middleware"
	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/internal/services"
	appErrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/response"
)

// sessionAware ends the portal session when the backend rejects its token so
// the UI is sent back to the login page.
type sessionAware struct {
	auth *services.AuthService
}

func (s sessionAware) fail(c *gin.Context, principal models.Principal, err error) {
	if s.endIfExpired(c, principal, err) {
		return
	}
	response.Error(c, err)
}

// endIfExpired writes the forced re-login response when err shows the
// backend no longer accepts the session's token.
func (s sessionAware) endIfExpired(c *gin.Context, principal models.Principal, err error) bool {
	if s.auth == nil || !s.auth.EndIfExpired(requestContext(c), principal, err) {
		return false
	}
	middleware.ClearSessionCookie(c)
	response.ErrorWithMeta(c, appErrors.ErrUnauthorized, &response.Meta{Redirect: middleware.LandingPath})
	return true
}
