package config_fx

import (
	"os"

	"go.uber.org/fx"

	"calbot/internal/config"
)

var Module = fx.Provide(provideConfig)

func provideConfig() (*config.Config, error) {
	return config.Load(os.Getenv("CALBOT_CONFIG"))
}
