package controllers_fx

import (
	"go.uber.org/fx"

	"calbot/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewHealthController),
	fx.Provide(controllers.NewUserController),
	fx.Provide(controllers.NewWebhookController),
	fx.Provide(controllers.NewJobsController))
