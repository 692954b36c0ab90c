package nutrition_fx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"calbot/internal/config"
	"calbot/internal/services"
)

var Module = fx.Provide(
	provideLookupCache, provideNutritionClient, provideFoodLookupService, providePhotoStore)

func provideLookupCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (services.LookupCache, error) {
	if cfg.Nutrition.CacheDriver != "redis" {
		return services.NewInMemoryLookupCache(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
			}
			log.Info("nutrition cache backed by redis", zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return services.NewRedisLookupCache(client, cfg.Redis.KeyPrefix), nil
}

func provideNutritionClient(cfg *config.Config, log *zap.Logger) services.NutritionClient {
	if cfg.Nutrition.APIKey == "" {
		log.Warn("nutrition api key is empty; lookups will be rejected upstream")
	}
	return services.NewCalorieNinjasClient(cfg.Nutrition.BaseURL, cfg.Nutrition.APIKey, cfg.Nutrition.Timeout)
}

func provideFoodLookupService(
	client services.NutritionClient,
	cache services.LookupCache,
	cfg *config.Config,
	log *zap.Logger,
) services.FoodLookupServiceInterface {
	return services.NewFoodLookupService(client, cache, services.NewColorClassifier(), cfg.Nutrition.CacheTTL, log)
}

func providePhotoStore(cfg *config.Config, log *zap.Logger) (services.PhotoStore, error) {
	return services.NewPhotoStore(context.Background(), cfg.Storage, log)
}
