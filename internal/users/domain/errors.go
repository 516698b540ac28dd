package domain

import "user-lifecycle/pkg/errors"

// Domain-specific errors
var (
	ErrNameRequired   = errors.NewValidation("name must not be blank", map[string]string{"field": "name"})
	ErrEmailRequired  = errors.NewValidation("email must not be blank", map[string]string{"field": "email"})
	ErrAgeNotPositive = errors.NewValidation("age must be a positive number", map[string]string{"field": "age"})
	ErrEmailExists    = errors.NewConflict("user with this email already exists")
)

// NewUserNotFound creates a not found error with the user ID
func NewUserNotFound(id uint) error {
	return errors.NewNotFound("user", id)
}
