package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/handlers/testutil"
)

func TestAuthHandler_LoginIssuesSession(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("hr")

	require.Equal(t, "/hr", login.HomePath)
	require.NotNil(t, login.Meta)
	require.Equal(t, "/hr", login.Meta.Redirect)
	require.Equal(t, testutil.HRID, login.User.ID)
	require.True(t, login.Cookie.HttpOnly)
	require.Greater(t, login.ExpiresAt, time.Now().Unix())

	resp := env.Request(http.MethodGet, "/api/auth/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var me struct {
		User     testutil.PrincipalBody `json:"user"`
		HomePath string                 `json:"home_path"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &me)
	require.Equal(t, "hr", me.User.Role)
	require.Equal(t, "/hr", me.HomePath)
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/auth/employee/login", map[string]string{
		"email": "employee@insurai.test", "password": "wrong-password",
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())
	require.Equal(t, "INVALID_CREDENTIALS", testutil.DecodeResponse(t, resp).Error.Code)

	resp = env.Request(http.MethodPost, "/api/auth/underwriter/login", map[string]string{
		"email": "employee@insurai.test", "password": testutil.Password,
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/auth/employee/login", map[string]string{"email": "not-an-email"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Equal(t, "VALIDATION_ERROR", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestAuthHandler_LoginIsRateLimited(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t, testutil.WithRateLimit(2, time.Minute))
	body := map[string]string{"email": "agent@insurai.test", "password": "wrong-password"}

	for i := 0; i < 2; i++ {
		resp := env.Request(http.MethodPost, "/api/auth/agent/login", body, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	}
	resp := env.Request(http.MethodPost, "/api/auth/agent/login", body, "")
	require.Equal(t, http.StatusTooManyRequests, resp.Code, resp.Body.String())
	require.NotEmpty(t, resp.Header().Get("Retry-After"))
}

func TestAuthHandler_LogoutEndsSession(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("employee")

	resp := env.Request(http.MethodPost, "/api/auth/logout", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, "/", testutil.DecodeResponse(t, resp).Meta.Redirect)

	resp = env.Request(http.MethodGet, "/api/auth/me", nil, login.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())
}

func TestAuthHandler_AccountRecovery(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Asha Rao", "email": "asha@insurai.test", "password": "Secret123!", "employeeId": "EMP-11",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var msg struct {
		Message string `json:"message"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &msg)
	require.Equal(t, "Registration successful", msg.Message)

	resp = env.Request(http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "asha@insurai.test"}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": "reset-token", "password": "short"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": "reset-token", "password": "NewSecret123!"}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 1, env.Backend.Calls("POST /auth/reset-password/{token}"))
}
