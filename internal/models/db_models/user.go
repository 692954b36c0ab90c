package db_models

// User is keyed by the messaging platform user id, which is also the chat id
// used for outbound messages in private chats.
type User struct {
	ID              int64  `gorm:"primaryKey;autoIncrement:false"`
	Username        string `gorm:"not null"`
	ReminderEnabled bool   `gorm:"not null;default:true"`
	DailyTarget     int    `gorm:"not null;default:2000"`
	CreatedAt       int64  `gorm:"autoCreateTime:milli"`
	UpdatedAt       int64  `gorm:"autoUpdateTime:milli"`

	Meals []Meal     `gorm:"foreignKey:UserID"`
	Logs  []DailyLog `gorm:"foreignKey:UserID"`
}
