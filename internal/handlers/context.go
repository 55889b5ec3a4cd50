package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/middleware"
	"github.com/insurai/portal/internal/models"
	appErrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/response"
)

// requestContext returns the context backend calls run under. Auth binds the
// session's backend token to the request; when only the gin keys carry it the
// token is bound here so fetchers never go out unauthenticated.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	ctx := c.Request.Context()
	if backend.TokenFromContext(ctx) == "" {
		if token := middleware.BackendTokenFrom(c); token != "" {
			ctx = backend.WithToken(ctx, token)
		}
	}
	return ctx
}

// principal returns the authenticated principal or writes a 401.
func principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Principal{}, false
	}
	return p, true
}
