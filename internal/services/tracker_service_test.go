package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"calbot/internal/config"
	"calbot/internal/infra"
	"calbot/internal/models/db_models"
	"calbot/internal/repositories"
	"calbot/pkg/utils"
)

// fakeClock is advanced by tests to control meal timestamps.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(t time.Time) { c.now = t }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.InitDatabase(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { infra.CloseDatabase(db, zap.NewNop()) })
	return db
}

func newTestTracker(t *testing.T, clock *fakeClock, loc *time.Location) TrackerServiceInterface {
	t.Helper()
	db := newTestDB(t)
	return NewTrackerService(
		repositories.NewUserRepository(db),
		repositories.NewMealRepository(db),
		repositories.NewDailyLogRepository(db),
		TrackerOptions{Location: loc, DefaultTarget: 2000, Clock: clock.Now},
		zap.NewNop(),
	)
}

type TrackerServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *fakeClock
	tracker TrackerServiceInterface
}

func (s *TrackerServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	s.tracker = newTestTracker(s.T(), s.clock, time.UTC)
}

func TestTrackerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TrackerServiceTestSuite))
}

func (s *TrackerServiceTestSuite) TestCreateUser() {
	s.Run("NewUser_GetsDefaults", func() {
		created, err := s.tracker.CreateUser(s.ctx, 42, "alice")
		require.NoError(s.T(), err)
		assert.True(s.T(), created)

		user, err := s.tracker.GetUser(s.ctx, 42)
		require.NoError(s.T(), err)
		require.NotNil(s.T(), user)
		assert.Equal(s.T(), "alice", user.Username)
		assert.Equal(s.T(), 2000, user.DailyTarget)
		assert.True(s.T(), user.ReminderEnabled)
	})

	s.Run("SecondCall_IsNoOp", func() {
		require.NoError(s.T(), s.tracker.UpdateSettings(s.ctx, 42, SettingsPatch{DailyTarget: intPtr(1500)}))

		created, err := s.tracker.CreateUser(s.ctx, 42, "renamed")
		require.NoError(s.T(), err)
		assert.False(s.T(), created)

		user, err := s.tracker.GetUser(s.ctx, 42)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), "alice", user.Username)
		assert.Equal(s.T(), 1500, user.DailyTarget)
	})
}

func (s *TrackerServiceTestSuite) TestGetUser_MissingIsNotAnError() {
	user, err := s.tracker.GetUser(s.ctx, 999)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), user)
}

func (s *TrackerServiceTestSuite) TestDailyTotal_EqualsSumOfMeals() {
	_, err := s.tracker.CreateUser(s.ctx, 1, "bob")
	require.NoError(s.T(), err)

	values := []float64{95.5, 250, 0, 410.25, 1200}
	var want float64
	for i, v := range values {
		s.clock.Set(time.Date(2026, 10, 18, 8+i, 0, 0, 0, time.UTC))
		_, err := s.tracker.AddMeal(s.ctx, 1, "food", v, db_models.MealTypeManual, nil)
		require.NoError(s.T(), err)
		want += v
	}

	total, err := s.tracker.DailyTotal(s.ctx, 1, s.clock.Now())
	require.NoError(s.T(), err)
	assert.InDelta(s.T(), want, total, 1e-9)

	meals, err := s.tracker.DailyMeals(s.ctx, 1, s.clock.Now())
	require.NoError(s.T(), err)
	var fromMeals float64
	for _, m := range meals {
		fromMeals += m.Calories
	}
	assert.InDelta(s.T(), fromMeals, total, 1e-9)
}

func (s *TrackerServiceTestSuite) TestDailyTotal_NoMealsIsZero() {
	_, err := s.tracker.CreateUser(s.ctx, 1, "bob")
	require.NoError(s.T(), err)

	total, err := s.tracker.DailyTotal(s.ctx, 1, s.clock.Now())
	require.NoError(s.T(), err)
	assert.Zero(s.T(), total)
}

func (s *TrackerServiceTestSuite) TestDailyMeals_OrderedAndBoundedToDay() {
	_, err := s.tracker.CreateUser(s.ctx, 1, "bob")
	require.NoError(s.T(), err)

	add := func(at time.Time, name string) {
		s.clock.Set(at)
		_, err := s.tracker.AddMeal(s.ctx, 1, name, 100, db_models.MealTypeManual, nil)
		require.NoError(s.T(), err)
	}

	add(time.Date(2026, 10, 17, 23, 59, 59, 999e6, time.UTC), "yesterday")
	add(time.Date(2026, 10, 18, 19, 0, 0, 0, time.UTC), "dinner")
	add(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), "midnight snack")
	add(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), "lunch")
	add(time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC), "late")
	add(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), "tomorrow")

	meals, err := s.tracker.DailyMeals(s.ctx, 1, time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC))
	require.NoError(s.T(), err)

	names := make([]string, 0, len(meals))
	for i, m := range meals {
		names = append(names, m.FoodName)
		if i > 0 {
			assert.LessOrEqual(s.T(), meals[i-1].CreatedAt, m.CreatedAt)
		}
	}
	assert.Equal(s.T(), []string{"midnight snack", "lunch", "dinner", "late"}, names)
}

func (s *TrackerServiceTestSuite) TestDailyMeals_OtherUsersExcluded() {
	_, err := s.tracker.CreateUser(s.ctx, 1, "bob")
	require.NoError(s.T(), err)
	_, err = s.tracker.CreateUser(s.ctx, 2, "carol")
	require.NoError(s.T(), err)

	_, err = s.tracker.AddMeal(s.ctx, 2, "cake", 600, db_models.MealTypeManual, nil)
	require.NoError(s.T(), err)

	meals, err := s.tracker.DailyMeals(s.ctx, 1, s.clock.Now())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), meals)
}

func (s *TrackerServiceTestSuite) TestAddMeal_Validation() {
	_, err := s.tracker.CreateUser(s.ctx, 1, "bob")
	require.NoError(s.T(), err)

	_, err = s.tracker.AddMeal(s.ctx, 1, "  ", 100, db_models.MealTypeManual, nil)
	assert.ErrorIs(s.T(), err, utils.ErrInvalidMeal)

	_, err = s.tracker.AddMeal(s.ctx, 1, "toast", -1, db_models.MealTypeManual, nil)
	assert.ErrorIs(s.T(), err, utils.ErrInvalidMeal)

	_, err = s.tracker.AddMeal(s.ctx, 1, "toast", 80, db_models.MealType("vending"), nil)
	assert.ErrorIs(s.T(), err, utils.ErrInvalidMeal)
}

func (s *TrackerServiceTestSuite) TestAddMeal_PhotoRefKept() {
	_, err := s.tracker.CreateUser(s.ctx, 1, "bob")
	require.NoError(s.T(), err)

	ref := "photos/file_7.jpg"
	meal, err := s.tracker.AddMeal(s.ctx, 1, "apple", 52, db_models.MealTypePhoto, &ref)
	require.NoError(s.T(), err)
	assert.NotZero(s.T(), meal.ID)

	meals, err := s.tracker.DailyMeals(s.ctx, 1, s.clock.Now())
	require.NoError(s.T(), err)
	require.Len(s.T(), meals, 1)
	require.NotNil(s.T(), meals[0].PhotoRef)
	assert.Equal(s.T(), ref, *meals[0].PhotoRef)
	assert.Equal(s.T(), db_models.MealTypePhoto, meals[0].MealType)
}

func (s *TrackerServiceTestSuite) TestAddMeal_UnknownUserIsPersistenceFailure() {
	_, err := s.tracker.AddMeal(s.ctx, 404, "ghost", 10, db_models.MealTypeManual, nil)
	assert.ErrorIs(s.T(), err, utils.ErrDatabaseError)
}

func (s *TrackerServiceTestSuite) TestUpdateSettings() {
	_, err := s.tracker.CreateUser(s.ctx, 7, "dave")
	require.NoError(s.T(), err)

	s.Run("Target", func() {
		require.NoError(s.T(), s.tracker.UpdateSettings(s.ctx, 7, SettingsPatch{DailyTarget: intPtr(1800)}))
		user, err := s.tracker.GetUser(s.ctx, 7)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), 1800, user.DailyTarget)
		assert.True(s.T(), user.ReminderEnabled)
	})

	s.Run("DisableReminders", func() {
		require.NoError(s.T(), s.tracker.UpdateSettings(s.ctx, 7, SettingsPatch{ReminderEnabled: boolPtr(false)}))
		user, err := s.tracker.GetUser(s.ctx, 7)
		require.NoError(s.T(), err)
		assert.False(s.T(), user.ReminderEnabled)
		assert.Equal(s.T(), 1800, user.DailyTarget)
	})

	s.Run("NonPositiveTarget", func() {
		err := s.tracker.UpdateSettings(s.ctx, 7, SettingsPatch{DailyTarget: intPtr(0)})
		assert.ErrorIs(s.T(), err, utils.ErrInvalidTarget)
	})

	s.Run("UnknownUser", func() {
		err := s.tracker.UpdateSettings(s.ctx, 8, SettingsPatch{DailyTarget: intPtr(1900)})
		assert.ErrorIs(s.T(), err, utils.ErrUserNotFound)
	})

	s.Run("EmptyPatch", func() {
		assert.NoError(s.T(), s.tracker.UpdateSettings(s.ctx, 8, SettingsPatch{}))
	})
}

func (s *TrackerServiceTestSuite) TestLogDailySummary_AppendsRows() {
	_, err := s.tracker.CreateUser(s.ctx, 3, "erin")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.tracker.LogDailySummary(s.ctx, 3, 1800, true))
	require.NoError(s.T(), s.tracker.LogDailySummary(s.ctx, 3, 2100, false))

	logs, err := s.tracker.RecentLogs(s.ctx, 3, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), logs, 2)
	assert.Equal(s.T(), "2026-10-18", logs[0].Date)
	assert.Equal(s.T(), 2100.0, logs[0].TotalCalories)
	assert.False(s.T(), logs[0].TargetMet)
	assert.True(s.T(), logs[1].TargetMet)
}

func (s *TrackerServiceTestSuite) TestListReminderUsers() {
	for id, name := range map[int64]string{1: "a", 2: "b", 3: "c"} {
		_, err := s.tracker.CreateUser(s.ctx, id, name)
		require.NoError(s.T(), err)
	}
	require.NoError(s.T(), s.tracker.UpdateSettings(s.ctx, 2, SettingsPatch{ReminderEnabled: boolPtr(false)}))

	users, err := s.tracker.ListReminderUsers(s.ctx)
	require.NoError(s.T(), err)

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.Equal(s.T(), []int64{1, 3}, ids)
}

func (s *TrackerServiceTestSuite) TestDaySummary() {
	_, err := s.tracker.CreateUser(s.ctx, 5, "frank")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.tracker.UpdateSettings(s.ctx, 5, SettingsPatch{DailyTarget: intPtr(2000)}))

	for _, c := range []float64{1200, 1300} {
		_, err := s.tracker.AddMeal(s.ctx, 5, "pizza", c, db_models.MealTypeManual, nil)
		require.NoError(s.T(), err)
	}

	summary, err := s.tracker.DaySummary(s.ctx, 5, s.clock.Now())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2500.0, summary.Total)
	assert.False(s.T(), summary.TargetMet)
	assert.Len(s.T(), summary.Meals, 2)

	_, err = s.tracker.DaySummary(s.ctx, 6, s.clock.Now())
	assert.ErrorIs(s.T(), err, utils.ErrUserNotFound)
}

func TestTrackerService_DayBoundaryFollowsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	clock := &fakeClock{}
	tracker := newTestTracker(t, clock, loc)
	ctx := context.Background()

	_, err = tracker.CreateUser(ctx, 1, "hana")
	require.NoError(t, err)

	// 16:00 UTC on the 17th is 01:00 on the 18th in Tokyo.
	clock.Set(time.Date(2026, 10, 17, 16, 0, 0, 0, time.UTC))
	_, err = tracker.AddMeal(ctx, 1, "onigiri", 200, db_models.MealTypeManual, nil)
	require.NoError(t, err)

	total, err := tracker.DailyTotal(ctx, 1, time.Date(2026, 10, 18, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, 200.0, total)

	total, err = tracker.DailyTotal(ctx, 1, time.Date(2026, 10, 17, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTargetMet(t *testing.T) {
	assert.True(t, TargetMet(0, 2000))
	assert.True(t, TargetMet(2000, 2000))
	assert.False(t, TargetMet(2500, 2000))
}

func TestParseSettingsPatch(t *testing.T) {
	patch, err := ParseSettingsPatch(map[string]interface{}{"daily_target": float64(1800), "reminder_enabled": false})
	require.NoError(t, err)
	require.NotNil(t, patch.DailyTarget)
	require.NotNil(t, patch.ReminderEnabled)
	assert.Equal(t, 1800, *patch.DailyTarget)
	assert.False(t, *patch.ReminderEnabled)

	_, err = ParseSettingsPatch(map[string]interface{}{"username": "mallory"})
	assert.ErrorIs(t, err, utils.ErrUnknownSetting)

	_, err = ParseSettingsPatch(map[string]interface{}{"daily_target": 1800.5})
	assert.ErrorIs(t, err, utils.ErrInvalidSetting)

	_, err = ParseSettingsPatch(map[string]interface{}{"reminder_enabled": "yes"})
	assert.ErrorIs(t, err, utils.ErrInvalidSetting)
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
