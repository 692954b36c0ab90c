package response_models

import (
	"time"

	"calbot/internal/models/db_models"
)

type MealResponse struct {
	ID        uint    `json:"id"`
	FoodName  string  `json:"food_name"`
	Calories  float64 `json:"calories"`
	MealType  string  `json:"meal_type"`
	PhotoRef  *string `json:"photo_ref,omitempty"`
	CreatedAt string  `json:"created_at"` // RFC3339 in the tracker timezone
}

type DaySummaryResponse struct {
	UserID    int64          `json:"user_id"`
	Date      string         `json:"date"`
	Meals     []MealResponse `json:"meals"`
	Total     float64        `json:"total_calories"`
	Target    int            `json:"daily_target"`
	TargetMet bool           `json:"target_met"`
}

type DailyLogResponse struct {
	ID            uint    `json:"id"`
	Date          string  `json:"date"`
	TotalCalories float64 `json:"total_calories"`
	TargetMet     bool    `json:"target_met"`
	CreatedAt     string  `json:"created_at"`
}

type UserSettingsResponse struct {
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	DailyTarget     int    `json:"daily_target"`
	ReminderEnabled bool   `json:"reminder_enabled"`
}

type JobRunResponse struct {
	Job       string  `json:"job"`
	Processed int     `json:"processed"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Skipped   int     `json:"skipped"`
	Seconds   float64 `json:"duration_seconds"`
}

func NewMealResponse(m db_models.Meal, loc *time.Location) MealResponse {
	return MealResponse{
		ID:        m.ID,
		FoodName:  m.FoodName,
		Calories:  m.Calories,
		MealType:  string(m.MealType),
		PhotoRef:  m.PhotoRef,
		CreatedAt: m.CreatedTime().In(loc).Format(time.RFC3339),
	}
}

func NewDailyLogResponse(l db_models.DailyLog, loc *time.Location) DailyLogResponse {
	return DailyLogResponse{
		ID:            l.ID,
		Date:          l.Date,
		TotalCalories: l.TotalCalories,
		TargetMet:     l.TargetMet,
		CreatedAt:     l.CreatedTime().In(loc).Format(time.RFC3339),
	}
}

func NewUserSettingsResponse(u db_models.User) UserSettingsResponse {
	return UserSettingsResponse{
		UserID:          u.ID,
		Username:        u.Username,
		DailyTarget:     u.DailyTarget,
		ReminderEnabled: u.ReminderEnabled,
	}
}
