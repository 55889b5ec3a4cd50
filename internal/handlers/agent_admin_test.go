package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/handlers/testutil"
)

func TestAgentHandler_RespondOnce(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("agent")

	resp := env.Request(http.MethodGet, "/api/agent/queries", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var queue struct {
		Pending  []queryBody `json:"pending"`
		Answered []queryBody `json:"answered"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &queue)
	require.Len(t, queue.Pending, 1)
	require.Len(t, queue.Answered, 1)

	resp = env.Request(http.MethodPost, "/api/agent/queries/301/response", map[string]string{"response": "Use the dependant form."}, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/agent/queries/301/response", map[string]string{"response": "Second answer"}, login.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.Code, "answered queries are immutable: %s", resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/agent/queries/777/response", map[string]string{"response": "?"}, login.AccessToken)
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
}

func TestAdminHandler_DirectoriesAreCached(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("admin")

	for i := 0; i < 2; i++ {
		resp := env.Request(http.MethodGet, "/api/admin/employees", nil, login.AccessToken)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}
	require.Equal(t, 1, env.Backend.Calls("GET /auth/employees"))

	resp := env.Request(http.MethodPost, "/api/admin/directories/refresh", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/admin/employees", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 2, env.Backend.Calls("GET /auth/employees"))
}

func TestAdminHandler_Overview(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("admin")

	resp := env.Request(http.MethodGet, "/api/admin/overview", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var overview struct {
		Employees      int `json:"employees"`
		HRUsers        int `json:"hrUsers"`
		Policies       int `json:"policies"`
		ActivePolicies int `json:"activePolicies"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &overview)
	require.Equal(t, 1, overview.Employees)
	require.Equal(t, 1, overview.HRUsers)
	require.Equal(t, 1, overview.ActivePolicies)
}
