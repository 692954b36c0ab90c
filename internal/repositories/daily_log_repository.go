package repositories

import (
	"context"

	"gorm.io/gorm"

	"calbot/internal/models/db_models"
)

type DailyLogRepository interface {
	Insert(ctx context.Context, log *db_models.DailyLog) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]db_models.DailyLog, error)
}

type dailyLogRepository struct {
	db *gorm.DB
}

func NewDailyLogRepository(db *gorm.DB) DailyLogRepository {
	return &dailyLogRepository{db: db}
}

func (d *dailyLogRepository) Insert(ctx context.Context, log *db_models.DailyLog) error {
	return d.db.WithContext(ctx).Create(log).Error
}

// ListRecent returns the newest rows first.
func (d *dailyLogRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]db_models.DailyLog, error) {
	var logs []db_models.DailyLog
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
