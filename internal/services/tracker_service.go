package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"calbot/internal/models/db_models"
	"calbot/internal/repositories"
	"calbot/pkg/utils"
)

// TrackerServiceInterface is the calorie store: users, meals and the daily
// summary history. Every method is a single statement against the database.
type TrackerServiceInterface interface {
	CreateUser(ctx context.Context, id int64, name string) (bool, error)
	GetUser(ctx context.Context, id int64) (*db_models.User, error)
	AddMeal(ctx context.Context, userID int64, foodName string, calories float64, mealType db_models.MealType, photoRef *string) (*db_models.Meal, error)
	DailyMeals(ctx context.Context, userID int64, day time.Time) ([]db_models.Meal, error)
	DailyTotal(ctx context.Context, userID int64, day time.Time) (float64, error)
	UpdateSettings(ctx context.Context, userID int64, patch SettingsPatch) error
	LogDailySummary(ctx context.Context, userID int64, total float64, targetMet bool) error
	LogDailySummaryFor(ctx context.Context, userID int64, day time.Time, total float64, targetMet bool) error

	ListUsers(ctx context.Context) ([]db_models.User, error)
	ListReminderUsers(ctx context.Context) ([]db_models.User, error)
	RecentLogs(ctx context.Context, userID int64, limit int) ([]db_models.DailyLog, error)
	DaySummary(ctx context.Context, userID int64, day time.Time) (*DaySummary, error)

	Now() time.Time
	Location() *time.Location
}

type TrackerOptions struct {
	Location      *time.Location
	DefaultTarget int
	Clock         utils.Clock
}

type TrackerService struct {
	userRepo repositories.UserRepository
	mealRepo repositories.MealRepository
	logRepo  repositories.DailyLogRepository
	opts     TrackerOptions
	logger   *zap.Logger
}

func NewTrackerService(
	userRepo repositories.UserRepository,
	mealRepo repositories.MealRepository,
	logRepo repositories.DailyLogRepository,
	opts TrackerOptions,
	logger *zap.Logger,
) TrackerServiceInterface {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultTarget <= 0 {
		opts.DefaultTarget = 2000
	}
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock
	}
	return &TrackerService{
		userRepo: userRepo,
		mealRepo: mealRepo,
		logRepo:  logRepo,
		opts:     opts,
		logger:   logger.Named("tracker"),
	}
}

// DaySummary is one user's day as shown by /summary, the HTTP API and the
// midnight job.
type DaySummary struct {
	User      db_models.User
	Date      string
	Meals     []db_models.Meal
	Total     float64
	Target    int
	TargetMet bool
}

// TargetMet reports whether a day stayed within the target. An empty day
// meets any positive target.
func TargetMet(total float64, target int) bool {
	return total <= float64(target)
}

func (s *TrackerService) Now() time.Time { return s.opts.Clock() }

func (s *TrackerService) Location() *time.Location { return s.opts.Location }

func (s *TrackerService) CreateUser(ctx context.Context, id int64, name string) (bool, error) {
	user := &db_models.User{
		ID:              id,
		Username:        name,
		ReminderEnabled: true,
		DailyTarget:     s.opts.DefaultTarget,
		CreatedAt:       s.opts.Clock().UnixMilli(),
	}

	created, err := s.userRepo.InsertIfAbsent(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", zap.Int64("user_id", id), zap.Error(err))
		return false, utils.ErrDatabaseError
	}
	if created {
		s.logger.Info("user created", zap.Int64("user_id", id))
	}
	return created, nil
}

// GetUser returns nil, nil for an unknown id.
func (s *TrackerService) GetUser(ctx context.Context, id int64) (*db_models.User, error) {
	user, err := s.userRepo.FindById(ctx, id)
	if err != nil {
		s.logger.Error("failed to load user", zap.Int64("user_id", id), zap.Error(err))
		return nil, utils.ErrDatabaseError
	}
	return user, nil
}

func (s *TrackerService) AddMeal(
	ctx context.Context,
	userID int64,
	foodName string,
	calories float64,
	mealType db_models.MealType,
	photoRef *string,
) (*db_models.Meal, error) {
	foodName = strings.TrimSpace(foodName)
	switch {
	case foodName == "":
		return nil, fmt.Errorf("%w: food name is empty", utils.ErrInvalidMeal)
	case calories < 0 || math.IsNaN(calories) || math.IsInf(calories, 0):
		return nil, fmt.Errorf("%w: calories must be a non-negative number", utils.ErrInvalidMeal)
	case !mealType.Valid():
		return nil, fmt.Errorf("%w: unknown meal type %q", utils.ErrInvalidMeal, mealType)
	}

	meal := &db_models.Meal{
		BaseModel: db_models.BaseModel{CreatedAt: s.opts.Clock().UnixMilli()},
		UserID:    userID,
		FoodName:  foodName,
		Calories:  calories,
		MealType:  mealType,
		PhotoRef:  photoRef,
	}

	if err := s.mealRepo.Insert(ctx, meal); err != nil {
		s.logger.Error("failed to insert meal",
			zap.Int64("user_id", userID), zap.String("food", foodName), zap.Error(err))
		return nil, utils.ErrDatabaseError
	}

	return meal, nil
}

func (s *TrackerService) DailyMeals(ctx context.Context, userID int64, day time.Time) ([]db_models.Meal, error) {
	start, end := utils.DayBounds(day, s.opts.Location)

	meals, err := s.mealRepo.FindByUserBetween(ctx, userID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		s.logger.Error("failed to list meals", zap.Int64("user_id", userID), zap.Error(err))
		return nil, utils.ErrDatabaseError
	}
	return meals, nil
}

func (s *TrackerService) DailyTotal(ctx context.Context, userID int64, day time.Time) (float64, error) {
	start, end := utils.DayBounds(day, s.opts.Location)

	total, err := s.mealRepo.SumCaloriesBetween(ctx, userID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		s.logger.Error("failed to sum calories", zap.Int64("user_id", userID), zap.Error(err))
		return 0, utils.ErrDatabaseError
	}
	return total, nil
}

func (s *TrackerService) UpdateSettings(ctx context.Context, userID int64, patch SettingsPatch) error {
	fields, err := patch.columns()
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrUserNotFound
		}
		s.logger.Error("failed to update settings", zap.Int64("user_id", userID), zap.Error(err))
		return utils.ErrDatabaseError
	}

	s.logger.Info("settings updated", zap.Int64("user_id", userID), zap.Any("fields", fields))
	return nil
}

func (s *TrackerService) LogDailySummary(ctx context.Context, userID int64, total float64, targetMet bool) error {
	return s.LogDailySummaryFor(ctx, userID, s.opts.Clock(), total, targetMet)
}

func (s *TrackerService) LogDailySummaryFor(ctx context.Context, userID int64, day time.Time, total float64, targetMet bool) error {
	entry := &db_models.DailyLog{
		BaseModel:     db_models.BaseModel{CreatedAt: s.opts.Clock().UnixMilli()},
		UserID:        userID,
		Date:          utils.DayKey(day, s.opts.Location),
		TotalCalories: total,
		TargetMet:     targetMet,
	}

	if err := s.logRepo.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to log daily summary", zap.Int64("user_id", userID), zap.Error(err))
		return utils.ErrDatabaseError
	}
	return nil
}

func (s *TrackerService) ListUsers(ctx context.Context) ([]db_models.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, utils.ErrDatabaseError
	}
	return users, nil
}

func (s *TrackerService) ListReminderUsers(ctx context.Context) ([]db_models.User, error) {
	users, err := s.userRepo.ListWithReminders(ctx)
	if err != nil {
		s.logger.Error("failed to list reminder users", zap.Error(err))
		return nil, utils.ErrDatabaseError
	}
	return users, nil
}

func (s *TrackerService) RecentLogs(ctx context.Context, userID int64, limit int) ([]db_models.DailyLog, error) {
	if limit <= 0 {
		limit = 7
	}
	logs, err := s.logRepo.ListRecent(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed to list daily logs", zap.Int64("user_id", userID), zap.Error(err))
		return nil, utils.ErrDatabaseError
	}
	return logs, nil
}

// DaySummary returns utils.ErrUserNotFound for an unknown user.
func (s *TrackerService) DaySummary(ctx context.Context, userID int64, day time.Time) (*DaySummary, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	meals, err := s.DailyMeals(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	total, err := s.DailyTotal(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	return &DaySummary{
		User:      *user,
		Date:      utils.DayKey(day, s.opts.Location),
		Meals:     meals,
		Total:     total,
		Target:    user.DailyTarget,
		TargetMet: TargetMet(total, user.DailyTarget),
	}, nil
}

// SettingsPatch is the closed set of user fields that may change after
// creation. Nil fields are left alone.
type SettingsPatch struct {
	DailyTarget     *int  `json:"daily_target,omitempty"`
	ReminderEnabled *bool `json:"reminder_enabled,omitempty"`
}

func (p SettingsPatch) IsEmpty() bool {
	return p.DailyTarget == nil && p.ReminderEnabled == nil
}

func (p SettingsPatch) columns() (map[string]interface{}, error) {
	fields := make(map[string]interface{}, 2)
	if p.DailyTarget != nil {
		if *p.DailyTarget <= 0 {
			return nil, utils.ErrInvalidTarget
		}
		fields["daily_target"] = *p.DailyTarget
	}
	if p.ReminderEnabled != nil {
		fields["reminder_enabled"] = *p.ReminderEnabled
	}
	return fields, nil
}

// ParseSettingsPatch converts a loosely typed key/value map (decoded JSON,
// for instance) into a SettingsPatch. Keys outside the allow-list are
// rejected rather than ignored.
func ParseSettingsPatch(raw map[string]interface{}) (SettingsPatch, error) {
	var patch SettingsPatch
	for key, value := range raw {
		switch key {
		case "daily_target":
			target, ok := asInt(value)
			if !ok {
				return SettingsPatch{}, fmt.Errorf("%w: daily_target must be an integer", utils.ErrInvalidSetting)
			}
			patch.DailyTarget = &target
		case "reminder_enabled":
			enabled, ok := value.(bool)
			if !ok {
				return SettingsPatch{}, fmt.Errorf("%w: reminder_enabled must be a boolean", utils.ErrInvalidSetting)
			}
			patch.ReminderEnabled = &enabled
		default:
			return SettingsPatch{}, fmt.Errorf("%w: %q", utils.ErrUnknownSetting, key)
		}
	}
	return patch, nil
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
