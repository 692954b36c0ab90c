package db_models

// DailyLog is a snapshot written by the midnight summary job. Rows are never
// updated; a re-run for the same date appends another row.
type DailyLog struct {
	BaseModel
	UserID        int64   `gorm:"not null;index:idx_daily_logs_user_date,priority:1"`
	Date          string  `gorm:"type:varchar(10);not null;index:idx_daily_logs_user_date,priority:2"` // YYYY-MM-DD
	TotalCalories float64 `gorm:"not null"`
	TargetMet     bool    `gorm:"not null"`
}
