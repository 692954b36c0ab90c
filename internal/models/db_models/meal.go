package db_models

type MealType string

const (
	MealTypeManual MealType = "manual"
	MealTypePhoto  MealType = "photo"
)

func (m MealType) Valid() bool {
	return m == MealTypeManual || m == MealTypePhoto
}

type Meal struct {
	BaseModel
	UserID   int64    `gorm:"not null;index"`
	FoodName string   `gorm:"not null"`
	Calories float64  `gorm:"not null"`
	MealType MealType `gorm:"type:varchar(16);not null"`
	PhotoRef *string
}
