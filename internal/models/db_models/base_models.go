package db_models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel carries the auto-increment id and the epoch-millisecond creation
// time shared by the append-only tables.
type BaseModel struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"`
	CreatedAt int64 `gorm:"autoCreateTime:milli;index"`
}

// BeforeCreate keeps a caller-supplied timestamp (the store passes its clock
// through) and only falls back to now when none was given.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.CreatedAt == 0 {
		b.CreatedAt = time.Now().UnixMilli()
	}
	return nil
}

func (b BaseModel) CreatedTime() time.Time {
	return time.UnixMilli(b.CreatedAt).UTC()
}
