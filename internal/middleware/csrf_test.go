package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func csrfRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Auth(testResolver()), CSRF())
	r.GET("/api/status", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/submit", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func sessionCookie() *http.Cookie {
	return &http.Cookie{Name: SessionCookieName, Value: "employee-token"}
}

func TestCSRFIssuesTokenOnSafeMethod(t *testing.T) {
	r := csrfRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(sessionCookie())
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := w.Result()
	defer resp.Body.Close()

	var csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			csrfCookie = c
			break
		}
	}
	require.NotNil(t, csrfCookie)
	require.NotEmpty(t, csrfCookie.Value)
	require.Equal(t, csrfCookie.Value, resp.Header.Get(CSRFHeaderName))
}

func TestCSRFAcceptsValidToken(t *testing.T) {
	r := csrfRouter()

	tokenResp := httptest.NewRecorder()
	tokenReq := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	tokenReq.AddCookie(sessionCookie())
	r.ServeHTTP(tokenResp, tokenReq)
	resp := tokenResp.Result()
	defer resp.Body.Close()

	var csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	token := resp.Header.Get(CSRFHeaderName)
	require.NotEmpty(t, token)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit", nil)
	req.AddCookie(sessionCookie())
	req.AddCookie(csrfCookie)
	req.Header.Set(CSRFHeaderName, token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestCSRFFailsWithMissingTokenForCookieSessions(t *testing.T) {
	r := csrfRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit", nil)
	req.AddCookie(sessionCookie())
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "CSRF_INVALID")
}

func TestCSRFSkipsBearerRequests(t *testing.T) {
	r := csrfRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit", nil)
	req.Header.Set("Authorization", "Bearer employee-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}
