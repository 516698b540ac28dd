package ports

import (
	"context"

	"user-lifecycle/internal/users/domain"
	"user-lifecycle/pkg/events"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// GetByID retrieves a user by ID, failing with NotFound if absent
	GetByID(ctx context.Context, id uint) (*domain.User, error)

	// ExistsByEmail reports whether any user has the given email
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create stores a new user and assigns its ID
	Create(ctx context.Context, user *domain.User) error

	// Update stores the mutable fields of an existing user
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID
	Delete(ctx context.Context, id uint) error
}

// EventPublisher sends lifecycle events to the event channel
type EventPublisher interface {
	Publish(ctx context.Context, event events.LifecycleEvent) error
}
