package domain

import (
	"strings"
	"time"
)

// User represents the user domain entity
type User struct {
	ID        uint
	Name      string
	Email     string
	Age       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks name, email and age in that order and reports the first violation
func (u *User) Validate() error {
	return ValidateFields(u.Name, u.Email, u.Age)
}

// ValidateFields checks the user-supplied fields without a User value
func ValidateFields(name, email string, age int) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}
	if age <= 0 {
		return ErrAgeNotPositive
	}
	return nil
}

// NewUser creates a new user with validation. CreatedAt is truncated to the minute.
func NewUser(name, email string, age int, now time.Time) (*User, error) {
	user := &User{
		Name:      name,
		Email:     email,
		Age:       age,
		CreatedAt: now.Truncate(time.Minute),
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Apply overwrites the mutable fields. Callers validate with ValidateFields first.
func (u *User) Apply(name, email string, age int, now time.Time) {
	u.Name = name
	u.Email = email
	u.Age = age
	u.UpdatedAt = now
}
