package utils

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidTarget  = errors.New("daily target must be a positive number of calories")
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidSetting = errors.New("invalid setting value")
	ErrInvalidMeal    = errors.New("invalid meal")
	ErrDatabaseError  = errors.New("database error")

	ErrFoodNotFound  = errors.New("food not found in nutrition database")
	ErrLookupTimeout = errors.New("nutrition lookup timed out")
	ErrImageTooSmall = errors.New("image too small")
	ErrInvalidImage  = errors.New("image could not be decoded")
)

// APIError is a non-200 answer from the nutrition service.
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nutrition api error: status %d", e.Status)
}
