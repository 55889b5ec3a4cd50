package handlers_test

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/handlers/testutil"
)

func TestReportHandler_GenerateAndHistory(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("hr")

	resp := env.Request(http.MethodPost, "/api/reports", map[string]string{"kind": "claims", "format": "csv", "status": "pending"}, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Contains(t, resp.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")
	reportID := resp.Header().Get("X-Report-ID")
	require.NotEmpty(t, reportID)

	records, err := csv.NewReader(bytes.NewReader(resp.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(records), 1)

	resp = env.Request(http.MethodPost, "/api/reports", map[string]string{"kind": "fraud", "format": "pdf"}, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF-")))

	resp = env.Request(http.MethodGet, "/api/reports/history", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var history []struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	}
	decoded := testutil.DecodeResponse(t, resp)
	testutil.DecodeInto(t, decoded.Data, &history)
	require.Len(t, history, 2)
	require.Equal(t, 2, decoded.Meta.Total)
	require.Equal(t, "fraud", history[0].Kind)
	require.Equal(t, reportID, history[1].ID)

	resp = env.Request(http.MethodDelete, "/api/reports/history", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestReportHandler_RoleKinds(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("agent")

	resp := env.Request(http.MethodGet, "/api/reports/kinds", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var kinds struct {
		Kinds []string `json:"kinds"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &kinds)
	require.Equal(t, []string{"queries"}, kinds.Kinds)

	resp = env.Request(http.MethodPost, "/api/reports", map[string]string{"kind": "fraud"}, login.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestReportHandler_HistorySurvivesLogout(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("employee")

	resp := env.Request(http.MethodPost, "/api/reports", map[string]string{"kind": "policies"}, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/auth/logout", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	again := env.Login("employee")
	resp = env.Request(http.MethodGet, "/api/reports/history", nil, again.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, 1, testutil.DecodeResponse(t, resp).Meta.Total)
}
