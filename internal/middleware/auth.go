package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/response"
)

const (
	CtxPrincipalKey    = "principal"
	CtxBackendTokenKey = "backendToken"
	ctxCookieAuthKey   = "cookieAuth"

	// SessionCookieName carries the portal token for browser navigations and
	// the notification stream.
	SessionCookieName = "insurai_session"
)

// SessionResolver turns a portal access token into the session it names.
type SessionResolver interface {
	Resolve(ctx context.Context, accessToken string) (iauth.Resolved, error)
}

// Auth resolves the portal session from the bearer header or session cookie,
// attaches the principal and binds the backend token to the request context.
func Auth(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie := accessToken(c)
		if token == "" {
			unauthenticated(c)
			return
		}

		resolved, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if !isSessionFailure(err) {
				response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
				c.Abort()
				return
			}
			unauthenticated(c)
			return
		}

		c.Set(CtxPrincipalKey, resolved.Principal)
		c.Set(CtxBackendTokenKey, resolved.BackendToken)
		c.Set(ctxCookieAuthKey, fromCookie)
		c.Request = c.Request.WithContext(backend.WithToken(c.Request.Context(), resolved.BackendToken))

		c.Next()
	}
}

// PrincipalFrom returns the principal attached by Auth.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return models.Principal{}, false
	}
	principal, ok := v.(models.Principal)
	return principal, ok
}

// BackendTokenFrom returns the backend bearer token attached by Auth.
func BackendTokenFrom(c *gin.Context) string {
	return c.GetString(CtxBackendTokenKey)
}

func accessToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:]), false
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie), true
	}
	return "", false
}

func isSessionFailure(err error) bool {
	return errors.Is(err, iauth.ErrSessionInvalidToken) ||
		errors.Is(err, iauth.ErrSessionNotFound) ||
		errors.Is(err, iauth.ErrSessionRevoked) ||
		errors.Is(err, iauth.ErrSessionExpired)
}

// unauthenticated sends browsers back to the landing page and API clients a 401.
func unauthenticated(c *gin.Context) {
	if wantsHTML(c) {
		redirectToLanding(c)
		return
	}
	c.Header("WWW-Authenticate", "Bearer")
	response.ErrorWithMeta(c, apperrors.ErrUnauthorized, &response.Meta{Redirect: LandingPath})
	c.Abort()
}

// SetSessionCookie stores the portal token for browser clients.
func SetSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, token, maxAge, "/", "", isSecureRequest(c.Request), true)
}

// ClearSessionCookie removes the portal token cookie.
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", isSecureRequest(c.Request), true)
}
