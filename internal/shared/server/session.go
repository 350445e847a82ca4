package server

import (
	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
)

// registerSessionRoutes attaches the /session endpoint.
func registerSessionRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", sessionHandler)
}

func sessionHandler(c *gin.Context) {
	respond.OK(c, gin.H{
		"userId":    middleware.UserIDFromContext(c),
		"profileId": middleware.ProfileIDFromContext(c),
		"requestId": middleware.RequestIDFromContext(c),
	})
}
