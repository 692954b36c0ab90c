package logger_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"calbot/internal/config"
	"calbot/pkg/logger"
)

var Module = fx.Provide(provideLogger)

func provideLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("app", cfg.App.Name))
	zap.ReplaceGlobals(log)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}
