package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/insurai/portal/pkg/logger"
	"github.com/insurai/portal/pkg/response"
)

func TestRecovery_PanicBecomesInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zap.ErrorLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	r := gin.New()
	r.Use(Recovery())
	r.POST("/api/hr/claims/:id/decision", func(c *gin.Context) {
		panic("nil claim view")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/hr/claims/9/decision", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	require.Equal(t, "INTERNAL_SERVER_ERROR", payload.Error.Code)
	require.NotContains(t, w.Body.String(), "nil claim view")

	entries := recorded.FilterMessage("panic").All()
	require.Len(t, entries, 1)
	require.Equal(t, "/api/hr/claims/9/decision", entries[0].ContextMap()["path"])
}

func TestNotFoundHandler_ReportsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.NoRoute(NotFoundHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/claims/5", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "NOT_FOUND", payload.Error.Code)
	require.Equal(t, "DELETE /api/claims/5", payload.Error.Details["route"])
}
