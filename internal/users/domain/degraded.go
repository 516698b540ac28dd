package domain

import "time"

// Values reported in place of a user record that could not be read
const (
	UnavailableName  = "Service temporarily unavailable"
	UnavailableEmail = "unavailable@example.com"
)

// Placeholder builds the record served when the store cannot answer a read.
func Placeholder(id uint, now time.Time) *User {
	return &User{
		ID:        id,
		Name:      UnavailableName,
		Email:     UnavailableEmail,
		Age:       0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPlaceholder reports whether u was synthesised by Placeholder
func (u *User) IsPlaceholder() bool {
	return u.Name == UnavailableName && u.Email == UnavailableEmail && u.Age == 0
}
