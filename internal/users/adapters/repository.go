package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"user-lifecycle/internal/users/domain"
	apperrors "user-lifecycle/pkg/errors"
)

// UserModel is the GORM model for users (persistence layer).
// CreatedAt is written as given by the domain, already truncated to the minute.
type UserModel struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	Email     string    `gorm:"size:255;uniqueIndex;not null"`
	Age       int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Migrate runs auto-migration for the user model
func (r *PostgresUserRepository) Migrate() error {
	return r.db.AutoMigrate(&UserModel{})
}

// Create creates a new user and copies the generated ID back
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	model := toModel(user)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailExists
		}
		return err
	}

	user.ID = model.ID
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var model UserModel

	result := r.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewUserNotFound(id)
		}
		return nil, apperrors.NewInternal("failed to get user", result.Error)
	}

	return toDomain(&model), nil
}

// ExistsByEmail reports whether a user with the given email is stored
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).Model(&UserModel{}).Where("email = ?", email).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

// Update writes name, email and age of an existing user
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	result := r.db.WithContext(ctx).Model(&UserModel{ID: user.ID}).Updates(map[string]interface{}{
		"name":       user.Name,
		"email":      user.Email,
		"age":        user.Age,
		"updated_at": user.UpdatedAt,
	})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewUserNotFound(user.ID)
	}
	return nil
}

// Delete deletes a user by ID
func (r *PostgresUserRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&UserModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewUserNotFound(id)
	}
	return nil
}

func toModel(user *domain.User) *UserModel {
	return &UserModel{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Age:       user.Age,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toDomain(model *UserModel) *domain.User {
	return &domain.User{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Age:       model.Age,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
