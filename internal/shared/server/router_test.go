package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"labreport-backend/internal/reports"
	"labreport-backend/internal/services/health"
	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/server/middleware"
)

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("down") }

func testConfig() config.Config {
	return config.Config{Server: config.ServerConfig{
		CORSAllowOrigins: "http://localhost:5173",
		RateLimitPerSec:  5,
		RateLimitBurst:   20,
	}}
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRouterHealthAndMetricsSkipSession(t *testing.T) {
	r := NewRouter(RouterDeps{Config: testConfig(), Health: health.NewService(nil)})

	resp := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"ok":true,"database":"memory"}`, resp.Body.String())

	resp = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "# TYPE")
}

func TestRouterHealthReportsDatabaseDown(t *testing.T) {
	r := NewRouter(RouterDeps{Config: testConfig(), Health: health.NewService(downDB{})})
	resp := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestRouterReportsRequireSession(t *testing.T) {
	svc := &reports.Service{Repo: reports.NewMemoryRepo()}
	r := NewRouter(RouterDeps{Config: testConfig(), ReportsHandler: reports.NewHandler(svc, reports.BatchOptions{})})

	resp := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	req.Header.Set(middleware.UserIDHeader, "user-1")
	req.Header.Set(middleware.ProfileIDHeader, "profile-1")
	resp = serve(r, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func TestRouterSessionEcho(t *testing.T) {
	r := NewRouter(RouterDeps{Config: testConfig()})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set(middleware.UserIDHeader, "user-1")
	req.Header.Set(middleware.ProfileIDHeader, "profile-1")
	req.Header.Set("X-Request-Id", "req-1")
	resp := serve(r, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"userId":"user-1","profileId":"profile-1","requestId":"req-1"}`, resp.Body.String())
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
