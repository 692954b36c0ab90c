package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"calbot/internal/models/db_models"
)

type UserRepository interface {
	InsertIfAbsent(ctx context.Context, user *db_models.User) (bool, error)
	FindById(ctx context.Context, id int64) (*db_models.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	ListAll(ctx context.Context) ([]db_models.User, error)
	ListWithReminders(ctx context.Context) ([]db_models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// InsertIfAbsent reports whether a row was created. An existing row is left
// untouched.
func (u *userRepository) InsertIfAbsent(ctx context.Context, user *db_models.User) (bool, error) {
	result := u.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (u *userRepository) FindById(ctx context.Context, id int64) (*db_models.User, error) {
	var user db_models.User
	err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// UpdateFields applies an already validated column map. Returns
// gorm.ErrRecordNotFound when no row matched.
func (u *userRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	result := u.db.WithContext(ctx).
		Model(&db_models.User{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (u *userRepository) ListAll(ctx context.Context) ([]db_models.User, error) {
	var users []db_models.User
	err := u.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, err
}

func (u *userRepository) ListWithReminders(ctx context.Context) ([]db_models.User, error) {
	var users []db_models.User
	err := u.db.WithContext(ctx).
		Where("reminder_enabled = ?", true).
		Order("id").
		Find(&users).Error
	return users, err
}
