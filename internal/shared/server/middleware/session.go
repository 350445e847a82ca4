package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	profileIDKey = "profileId"

	// UserIDHeader and ProfileIDHeader carry the caller session.
	UserIDHeader    = "X-User-Id"
	ProfileIDHeader = "X-Profile-Id"
)

// Session reads the caller's user and profile from request headers. Identity
// is asserted by the fronting gateway; requests without both are rejected.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		profileID := strings.TrimSpace(c.GetHeader(ProfileIDHeader))
		if userID == "" || profileID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing session headers", gin.H{
				"required": []string{UserIDHeader, ProfileIDHeader},
			})
			return
		}

		c.Set(userIDKey, userID)
		c.Set(profileIDKey, profileID)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the session middleware.
func UserIDFromContext(c *gin.Context) string {
	return contextString(c, userIDKey)
}

// ProfileIDFromContext fetches the profile ID set by the session middleware.
func ProfileIDFromContext(c *gin.Context) string {
	return contextString(c, profileIDKey)
}

func contextString(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
