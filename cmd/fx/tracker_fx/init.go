package tracker_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"calbot/internal/config"
	"calbot/internal/repositories"
	"calbot/internal/services"
)

var Module = fx.Provide(
	provideUserRepo, provideMealRepo, provideDailyLogRepo, provideTrackerService)

func provideUserRepo(db *gorm.DB) repositories.UserRepository {
	return repositories.NewUserRepository(db)
}

func provideMealRepo(db *gorm.DB) repositories.MealRepository {
	return repositories.NewMealRepository(db)
}

func provideDailyLogRepo(db *gorm.DB) repositories.DailyLogRepository {
	return repositories.NewDailyLogRepository(db)
}

func provideTrackerService(
	userRepo repositories.UserRepository,
	mealRepo repositories.MealRepository,
	logRepo repositories.DailyLogRepository,
	cfg *config.Config,
	log *zap.Logger,
) services.TrackerServiceInterface {
	return services.NewTrackerService(userRepo, mealRepo, logRepo, services.TrackerOptions{
		Location:      cfg.Location(),
		DefaultTarget: cfg.Tracker.DefaultTarget,
	}, log)
}
