package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"calbot/cmd/fx/bot_fx"
	"calbot/cmd/fx/config_fx"
	"calbot/cmd/fx/controllers_fx"
	"calbot/cmd/fx/db_fx"
	"calbot/cmd/fx/logger_fx"
	"calbot/cmd/fx/memcache_fx"
	"calbot/cmd/fx/nutrition_fx"
	"calbot/cmd/fx/scheduler_fx"
	"calbot/cmd/fx/tracker_fx"
	"calbot/internal/api"
	"calbot/internal/api/controllers"
	"calbot/internal/config"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		config_fx.Module,
		logger_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		tracker_fx.Module,
		nutrition_fx.Module,
		bot_fx.Module,
		scheduler_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config, log *zap.Logger) {
	if !cfg.Server.Enabled {
		log.Info("http server disabled")
		return
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("starting http server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping http server")
			return srv.Shutdown(ctx)
		},
	})
}

func ProvideRouter(
	health *controllers.HealthController,
	users *controllers.UserController,
	webhook *controllers.WebhookController,
	jobs *controllers.JobsController,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
	log *zap.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Server.JWTSecret == "" {
		log.Warn("server.jwt_secret is empty; /api routes will answer 503")
	}

	return api.NewRouter(api.Controllers{
		Health:  health,
		Users:   users,
		Webhook: webhook,
		Jobs:    jobs,
	}, []byte(cfg.Server.JWTSecret), gatherer, log)
}
