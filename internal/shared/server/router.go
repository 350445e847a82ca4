package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/reports"
	"labreport-backend/internal/services/health"
	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
)

// RouterDeps contains dependencies needed to build the router.
type RouterDeps struct {
	Config         config.Config
	ReportsHandler *reports.Handler
	Health         *health.Service
	RateLimiter    *middleware.RateLimiter
}

const (
	rateLimitGroupDefault = "DEFAULT"
	rateLimitGroupAnalyze = "ANALYZE"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSOrigins()),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		st := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !st.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, st)
	})

	perSec := deps.Config.Server.RateLimitPerSec
	burst := deps.Config.Server.RateLimitBurst
	authed := api.Group("",
		middleware.Session(),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateLimitGroupDefault,
			GroupFor:     rateLimitGroup,
			Limiter:      deps.RateLimiter,
			Rules: map[string]middleware.RateLimitRule{
				rateLimitGroupDefault: {Rate: perSec, Burst: burst},
				// Model calls are the expensive path.
				rateLimitGroupAnalyze: {Rate: perSec / 5, Burst: max(1, burst/5)},
			},
		}),
	)
	registerSessionRoutes(authed)
	if deps.ReportsHandler != nil {
		deps.ReportsHandler.RegisterRoutes(authed)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateLimitGroupDefault
	}
	switch c.FullPath() {
	case "/api/v1/reports/:id/analyze", "/api/v1/reports/analyze-batch":
		return rateLimitGroupAnalyze
	default:
		return rateLimitGroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
