package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/telemetry"
)

// Logging emits one request.complete line per request and feeds the HTTP
// metrics. Preflights are skipped. Identity and report fields appear only
// when set.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		durationMs := metrics.SinceMillis(start)
		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(status, durationMs)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"route":       route,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": durationMs,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for key, val := range map[string]string{
			"user_id":           UserIDFromContext(c),
			"profile_id":        ProfileIDFromContext(c),
			"report_id":         c.GetString("reportId"),
			"status_transition": c.GetString("statusTransition"),
		} {
			if val != "" {
				fields[key] = val
			}
		}
		telemetry.Info("request.complete", fields)
	}
}
