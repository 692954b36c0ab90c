package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"calbot/internal/api/controllers"
	"calbot/pkg/middleware"
	"calbot/pkg/utils"
)

type Controllers struct {
	Health  *controllers.HealthController
	Users   *controllers.UserController
	Webhook *controllers.WebhookController
	Jobs    *controllers.JobsController
}

// NewRouter builds the gin engine. gatherer backs /metrics.
func NewRouter(ctrl Controllers, jwtSecret []byte, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(logger))

	RegisterRoutes(r, ctrl, jwtSecret, gatherer)
	return r
}

func RegisterRoutes(r *gin.Engine, ctrl Controllers, jwtSecret []byte, gatherer prometheus.Gatherer) {
	r.GET("/health", ctrl.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.POST("/telegram/webhook", ctrl.Webhook.Receive)

	admin := r.Group("/api",
		middleware.JWTAuthMiddleware(jwtSecret),
		middleware.RoleMiddleware(utils.RoleAdmin),
	)

	users := admin.Group("/users")
	users.GET("/:id/summary", ctrl.Users.GetSummary)
	users.GET("/:id/logs", ctrl.Users.ListLogs)
	users.PATCH("/:id/settings", ctrl.Users.UpdateSettings)

	admin.POST("/jobs/:name/run", ctrl.Jobs.RunJob)
}
