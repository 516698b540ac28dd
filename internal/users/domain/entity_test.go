package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-lifecycle/pkg/errors"
)

func TestNewUser_FirstViolationWins(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		inName  string
		inEmail string
		inAge   int
		want    error
	}{
		{"all invalid reports name", " ", "", 0, ErrNameRequired},
		{"email and age invalid reports email", "Alice", "", -1, ErrEmailRequired},
		{"age invalid", "Alice", "alice@x.com", 0, ErrAgeNotPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.inName, tt.inEmail, tt.inAge, now)
			assert.Equal(t, tt.want, err)
			assert.True(t, errors.Is(err, errors.CodeValidation))
		})
	}
}

func TestNewUser_TruncatesCreatedAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 45, 123, time.UTC)

	user, err := NewUser("Alice", "alice@x.com", 30, now)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), user.CreatedAt)
}

func TestPlaceholder(t *testing.T) {
	now := time.Now()
	p := Placeholder(42, now)

	assert.Equal(t, uint(42), p.ID)
	assert.Equal(t, UnavailableEmail, p.Email)
	assert.Zero(t, p.Age)
	assert.True(t, p.IsPlaceholder())
}

func TestApply_OverwritesMutableFields(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	u := &User{ID: 4, Name: "Alice", Email: "alice@x.com", Age: 30, CreatedAt: created}
	now := created.Add(time.Hour)

	u.Apply("Alicia", "alicia@x.com", 31, now)

	assert.Equal(t, User{ID: 4, Name: "Alicia", Email: "alicia@x.com", Age: 31, CreatedAt: created, UpdatedAt: now}, *u)
}

func TestValidateFields_FirstViolationWins(t *testing.T) {
	assert.Equal(t, ErrNameRequired, ValidateFields(" ", "", 0))
	assert.Equal(t, ErrEmailRequired, ValidateFields("A", "", 0))
	assert.Equal(t, ErrAgeNotPositive, ValidateFields("A", "a@x.com", 0))
	require.NoError(t, ValidateFields("A", "a@x.com", 1))
}
