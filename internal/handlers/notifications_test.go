package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/handlers/testutil"
)

type notificationList struct {
	Notifications []struct {
		ID   int64 `json:"id"`
		Read bool  `json:"readStatus"`
	} `json:"notifications"`
	UnreadCount int `json:"unread_count"`
}

func TestNotificationHandler_ListAndFilter(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("employee")

	resp := env.Request(http.MethodGet, "/api/notifications", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var all notificationList
	decoded := testutil.DecodeResponse(t, resp)
	testutil.DecodeInto(t, decoded.Data, &all)
	require.Len(t, all.Notifications, 3)
	require.Equal(t, 2, all.UnreadCount)
	require.Equal(t, "all", decoded.Meta.Filter)

	resp = env.Request(http.MethodGet, "/api/notifications?filter=unread", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var unread notificationList
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &unread)
	require.Len(t, unread.Notifications, 2)
	for _, n := range unread.Notifications {
		require.False(t, n.Read)
	}

	resp = env.Request(http.MethodGet, "/api/notifications?filter=archived", nil, login.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestNotificationHandler_MarkRead(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("hr")

	resp := env.Request(http.MethodGet, "/api/notifications", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/notifications/1/read", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.True(t, env.Backend.IsRead(1))

	var marked struct {
		UnreadCount int `json:"unread_count"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &marked)
	require.Equal(t, 1, marked.UnreadCount)

	resp = env.Request(http.MethodGet, "/api/notifications/unread-count", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &marked)
	require.Equal(t, 1, marked.UnreadCount)
}

func TestNotificationHandler_MarkMultipleRead(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("agent")

	resp := env.Request(http.MethodPost, "/api/notifications/read", map[string]any{"ids": []int64{1, 2, 3, 42}}, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result struct {
		Results []struct {
			ID      int64 `json:"id"`
			Success bool  `json:"success"`
			Skipped bool  `json:"skipped"`
		} `json:"results"`
		UnreadCount int `json:"unread_count"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &result)
	require.Len(t, result.Results, 4)
	require.Equal(t, 0, result.UnreadCount)
	require.True(t, env.Backend.IsRead(1))
	require.True(t, env.Backend.IsRead(3))

	resp = env.Request(http.MethodPost, "/api/notifications/read", map[string]any{"ids": []int64{}}, login.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestNotificationHandler_UnreadCountBeforeFirstList(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)
	login := env.Login("employee")

	resp := env.Request(http.MethodGet, "/api/notifications/unread-count", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		UnreadCount int `json:"unread_count"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &body)
	require.Equal(t, 2, body.UnreadCount)
	require.Equal(t, 1, env.Backend.Calls("GET /notifications/user/{id}/unread"))
	require.Zero(t, env.Backend.Calls("GET /notifications/user/{id}"))
}
