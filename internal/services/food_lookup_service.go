package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"calbot/pkg/utils"
)

type FoodLookupServiceInterface interface {
	Lookup(ctx context.Context, query string) (FoodInfo, error)
	ClassifyImage(data []byte) (string, error)
	EstimatePortion(data []byte) float64
	AnalyzePhoto(ctx context.Context, data []byte) (*PhotoEstimate, error)
}

// PhotoEstimate is what a meal photo turns into before it is stored.
type PhotoEstimate struct {
	Query    string
	Name     string
	Calories float64
	Portion  float64
}

type FoodLookupService struct {
	client     NutritionClient
	cache      LookupCache
	classifier ImageClassifier
	ttl        time.Duration
	group      singleflight.Group
	logger     *zap.Logger
}

func NewFoodLookupService(
	client NutritionClient,
	cache LookupCache,
	classifier ImageClassifier,
	ttl time.Duration,
	logger *zap.Logger,
) FoodLookupServiceInterface {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cache == nil {
		cache = NewInMemoryLookupCache()
	}
	if classifier == nil {
		classifier = NewColorClassifier()
	}
	return &FoodLookupService{
		client:     client,
		cache:      cache,
		classifier: classifier,
		ttl:        ttl,
		logger:     logger.Named("food_lookup"),
	}
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Lookup serves from cache when it can; concurrent misses for the same key
// share one outbound request. Only successful answers are cached.
func (s *FoodLookupService) Lookup(ctx context.Context, query string) (FoodInfo, error) {
	key := normalizeQuery(query)
	if key == "" {
		return FoodInfo{}, utils.ErrFoodNotFound
	}

	if info, ok := s.cache.Get(ctx, key); ok {
		return info, nil
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		if info, ok := s.cache.Get(ctx, key); ok {
			return info, nil
		}
		info, err := s.client.FetchCalories(ctx, key)
		if err != nil {
			return FoodInfo{}, err
		}
		s.cache.Set(ctx, key, info, s.ttl)
		return info, nil
	})
	if err != nil {
		s.logLookupError(key, err)
		return FoodInfo{}, err
	}
	if shared {
		s.logger.Debug("lookup shared with in-flight request", zap.String("query", key))
	}

	return v.(FoodInfo), nil
}

func (s *FoodLookupService) logLookupError(key string, err error) {
	var apiErr *utils.APIError
	switch {
	case errors.Is(err, utils.ErrFoodNotFound):
		s.logger.Info("food not found", zap.String("query", key))
	case errors.Is(err, utils.ErrLookupTimeout):
		s.logger.Warn("nutrition lookup timed out", zap.String("query", key))
	case errors.As(err, &apiErr):
		s.logger.Warn("nutrition api error", zap.String("query", key), zap.Int("status", apiErr.Status))
	default:
		s.logger.Error("nutrition lookup failed", zap.String("query", key), zap.Error(err))
	}
}

func (s *FoodLookupService) ClassifyImage(data []byte) (string, error) {
	return s.classifier.Classify(data)
}

func (s *FoodLookupService) EstimatePortion(data []byte) float64 {
	return s.classifier.EstimatePortion(data)
}

func (s *FoodLookupService) AnalyzePhoto(ctx context.Context, data []byte) (*PhotoEstimate, error) {
	query, err := s.classifier.Classify(data)
	if err != nil {
		s.logger.Info("photo rejected", zap.Error(err))
		return nil, err
	}

	info, err := s.Lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	portion := s.classifier.EstimatePortion(data)
	return &PhotoEstimate{
		Query:    query,
		Name:     info.Name,
		Calories: info.Calories * portion,
		Portion:  portion,
	}, nil
}
