package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/telemetry"
)

// ErrorBody is the error object every failed request returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody under "error".
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// gin keys copied into the error log line when set.
var contextLogKeys = [][2]string{
	{"requestId", "request_id"},
	{"userId", "user_id"},
	{"profileId", "profile_id"},
	{"reportId", "report_id"},
}

// Error logs the failure and aborts with the standard envelope. Client
// errors log at warn, server errors at error.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":  status,
		"code":    code,
		"message": message,
		"path":    c.Request.URL.Path,
		"method":  c.Request.Method,
	}
	for _, kv := range contextLogKeys {
		if v := c.GetString(kv[0]); v != "" {
			fields[kv[1]] = v
		}
	}
	log := telemetry.Warn
	if status >= http.StatusInternalServerError {
		log = telemetry.Error
	}
	log("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}
