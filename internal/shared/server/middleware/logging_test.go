package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"labreport-backend/internal/shared/metrics"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Session(), Logging())
	router.GET("/reports/:id", func(c *gin.Context) {
		c.Set("reportId", "report-1")
		c.Set("statusTransition", "pending->processing")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/reports/report-1", nil)
	req.Header.Set(UserIDHeader, "user-1")
	req.Header.Set(ProfileIDHeader, "profile-1")
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	for _, key := range []string{"request_id", "user_id", "profile_id", "report_id", "duration_ms", "status", "status_transition"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "profile-1", fields["profile_id"])
	assert.Equal(t, "report-1", fields["report_id"])
	assert.Equal(t, "pending->processing", fields["status_transition"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "/reports/:id", fields["route"])
	assert.Contains(t, metrics.Render(), "http_request_duration_ms_count")
}

func TestLoggingOmitsUnsetIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.OPTIONS("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, method := range []string{http.MethodGet, http.MethodOptions} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, "/health", nil))
	}

	entries := logs.FilterMessage("request.complete").All()
	require.Len(t, entries, 1, "preflight is not logged")
	fields := entries[0].ContextMap()
	assert.NotContains(t, fields, "user_id")
	assert.NotContains(t, fields, "report_id")
	assert.Equal(t, "GET", fields["method"])
}
