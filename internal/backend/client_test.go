package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/models"
	apperrors "github.com/insurai/portal/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "localhost"})
	require.Error(t, err)

	client, err := NewClient(Config{})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", client.base.String())
}

func TestLoginUsesRoleEndpoint(t *testing.T) {
	var gotPath string
	var gotBody Credentials
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"token":"backend-token","role":"HR","name":"Asha","id":7}`)
	}))

	result, err := client.Login(context.Background(), models.RoleHR, Credentials{Email: "asha@corp.test", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "/hr/login", gotPath)
	require.Equal(t, "asha@corp.test", gotBody.Email)
	require.Equal(t, "backend-token", result.Token)
	require.Equal(t, int64(7), result.UserID(models.RoleHR))
}

func TestLoginResultUserID(t *testing.T) {
	require.Equal(t, int64(4), LoginResult{ID: 1, AgentID: 4}.UserID(models.RoleAgent))
	require.Equal(t, int64(12), LoginResult{EmployeeID: "12"}.UserID(models.RoleEmployee))
	require.Equal(t, int64(3), LoginResult{ID: 3, EmployeeID: "EMP-3"}.UserID(models.RoleEmployee))
}

func TestLoginNotFoundMapsToNotFoundError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"No account for that email"}`)
	}))

	_, err := client.Login(context.Background(), models.RoleEmployee, Credentials{Email: "x@y.z"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Equal(t, "No account for that email", apperrors.FromError(err).Message)
}

func TestBearerTokenFromContext(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		require.Equal(t, "/hr/claims", r.URL.Path)
		require.Equal(t, "7", r.URL.Query().Get("hrId"))
		_, _ = io.WriteString(w, `[{"id":5,"policy_id":1,"amount":"100","status":"Pending","assigned_hr_id":7}]`)
	}))

	ctx := WithToken(context.Background(), "session-token")
	claims, err := client.ListHRClaims(ctx, 7)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	require.Equal(t, int64(7), claims[0].AssignedHRID)
}

func TestStatusErrorMapping(t *testing.T) {
	status := http.StatusInternalServerError
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	ctx := WithToken(context.Background(), "t")

	_, err := client.ListPolicies(ctx)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	require.ErrorIs(t, err, apperrors.ErrNetwork)

	status = http.StatusForbidden
	_, err = client.ListPolicies(ctx)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	status = http.StatusUnauthorized
	_, err = client.ListFraudAlerts(ctx)
	var unauth *UnauthorizedError
	require.ErrorAs(t, err, &unauth)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.ListEmployees(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestDecideClaimSendsRemarks(t *testing.T) {
	var body map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/hr/claims/approve/5":
			_, _ = io.WriteString(w, `{"id":5,"status":"Approved","remarks":"verified"}`)
		case "/hr/claims/reject/6":
			_, _ = io.WriteString(w, `Claim rejected`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	ctx := WithToken(context.Background(), "t")

	approved, err := client.ApproveClaim(ctx, 5, "verified")
	require.NoError(t, err)
	require.NotNil(t, approved)
	require.Equal(t, models.ClaimApproved, approved.Status)
	require.Equal(t, "verified", body["remarks"])

	rejected, err := client.RejectClaim(ctx, 6, "duplicate")
	require.NoError(t, err)
	require.Nil(t, rejected)
	require.Equal(t, "duplicate", body["remarks"])
}

func TestSubmitClaimPayload(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/employee/claims", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"id":41,"policyId":1,"amount":50000,"status":"Pending","claimType":"Medical"}`)
	}))

	payload := NewClaimPayload(0, 12, 1, "Surgery", "Medical", decimal.NewFromInt(50000), "knee",
		time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC), nil)
	claim, err := client.SubmitClaim(WithToken(context.Background(), "t"), payload)
	require.NoError(t, err)
	require.Equal(t, int64(41), claim.ID)
	require.Equal(t, "Medical", claim.Type)
	require.Equal(t, "2025-06-02", body["claimDate"])
	require.Equal(t, "50000", body["amount"])
	require.NotContains(t, body, "id")
}

func TestNotificationEndpoints(t *testing.T) {
	var marked []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/notifications/user/4":
			_, _ = io.WriteString(w, `[{"id":1,"readStatus":false},{"id":2,"readStatus":true}]`)
		case r.Method == http.MethodGet && r.URL.Path == "/notifications/user/4/unread":
			_, _ = io.WriteString(w, `[{"id":1,"readStatus":false}]`)
		case r.Method == http.MethodPut:
			marked = append(marked, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := WithToken(context.Background(), "t")

	all, err := client.ListNotifications(ctx, 4)
	require.NoError(t, err)
	require.Len(t, all, 2)

	unread, err := client.ListUnreadNotifications(ctx, 4)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, client.MarkNotificationRead(ctx, 1))
	require.Equal(t, []string{"/notifications/1/read"}, marked)
}

func TestAgentQueryEndpoints(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/agent/queries":
			require.Equal(t, "3", r.URL.Query().Get("agentId"))
			_, _ = io.WriteString(w, `[{"id":8,"query_text":"When is renewal?","agent_id":3,"response":null}]`)
		case r.Method == http.MethodPut && r.URL.Path == "/agent/queries/8/respond":
			_, _ = io.WriteString(w, `{"id":8,"queryText":"When is renewal?","response":"January"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := WithToken(context.Background(), "t")

	queries, err := client.ListAgentQueries(ctx, 3)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	require.False(t, queries[0].Answered())
	require.Equal(t, "When is renewal?", queries[0].QueryText)

	answered, err := client.RespondQuery(ctx, 8, "January")
	require.NoError(t, err)
	require.True(t, answered.Answered())
}

func TestRegisterReturnsMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"Registered successfully"}`)
	}))

	message, err := client.Register(context.Background(), Registration{Name: "A", Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "Registered successfully", message)
}
