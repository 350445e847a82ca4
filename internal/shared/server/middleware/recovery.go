package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/server/respond"
	"labreport-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into the standard 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		telemetry.Error("http.panic", map[string]any{
			"request_id": RequestIDFromContext(c),
			"report_id":  c.Param("id"),
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"panic":      rec,
			"stack":      string(debug.Stack()),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
	})
}
