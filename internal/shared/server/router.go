package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-roaster/internal/proxy"
	"resume-roaster/internal/services/health"
	"resume-roaster/internal/shared/config"
	"resume-roaster/internal/shared/metrics"
	"resume-roaster/internal/shared/server/middleware"
	"resume-roaster/internal/shared/server/respond"
	"resume-roaster/internal/uploads"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config         config.Config
	ProxyHandler   *proxy.Handler
	UploadsHandler *uploads.Handler
	Health         *health.Service
	RateLimiter    *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		respond.JSON(c, http.StatusOK, deps.Health.Status())
	})

	if deps.ProxyHandler != nil {
		limit := middleware.RateLimit(middleware.RateLimitConfig{
			Rule: middleware.RateLimitRule{
				Rate:  deps.Config.RateLimitRPS,
				Burst: deps.Config.RateLimitBurst,
			},
			Limiter: deps.RateLimiter,
		})
		deps.ProxyHandler.RegisterRoutes(api, limit)
	}
	if deps.UploadsHandler != nil {
		deps.UploadsHandler.RegisterRoutes(api)
	}

	return r
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
