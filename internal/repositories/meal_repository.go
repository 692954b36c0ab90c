package repositories

import (
	"context"

	"gorm.io/gorm"

	"calbot/internal/models/db_models"
)

type MealRepository interface {
	Insert(ctx context.Context, meal *db_models.Meal) error
	FindByUserBetween(ctx context.Context, userID int64, fromMillis, toMillis int64) ([]db_models.Meal, error)
	SumCaloriesBetween(ctx context.Context, userID int64, fromMillis, toMillis int64) (float64, error)
}

type mealRepository struct {
	db *gorm.DB
}

func NewMealRepository(db *gorm.DB) MealRepository {
	return &mealRepository{db: db}
}

func (m *mealRepository) Insert(ctx context.Context, meal *db_models.Meal) error {
	return m.db.WithContext(ctx).Create(meal).Error
}

// FindByUserBetween returns meals with fromMillis <= created_at < toMillis in
// creation order.
func (m *mealRepository) FindByUserBetween(ctx context.Context, userID int64, fromMillis, toMillis int64) ([]db_models.Meal, error) {
	var meals []db_models.Meal
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, fromMillis, toMillis).
		Order("created_at ASC, id ASC").
		Find(&meals).Error
	if err != nil {
		return nil, err
	}
	return meals, nil
}

func (m *mealRepository) SumCaloriesBetween(ctx context.Context, userID int64, fromMillis, toMillis int64) (float64, error) {
	var total float64
	err := m.db.WithContext(ctx).
		Model(&db_models.Meal{}).
		Select("COALESCE(SUM(calories), 0)").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, fromMillis, toMillis).
		Scan(&total).Error
	return total, err
}
