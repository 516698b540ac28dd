package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"user-lifecycle/internal/users/domain"
	"user-lifecycle/internal/users/ports"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/events"
	"user-lifecycle/pkg/logger"
)

// Breaker names used by the use case
const (
	BreakerUserService = "userService"
	BreakerUserEvents  = "userEvents"
)

// UserUseCase handles user business logic. Every operation runs through
// the userService breaker; the create-path event goes through userEvents.
type UserUseCase struct {
	repo      ports.UserRepository
	publisher ports.EventPublisher
	breakers  *breaker.Registry
	reads     degradedReadPolicy
	log       *logger.Logger
	now       func() time.Time
}

// NewUserUseCase creates a new user use case. A nil publisher disables events.
func NewUserUseCase(repo ports.UserRepository, publisher ports.EventPublisher, breakers *breaker.Registry, log *logger.Logger) *UserUseCase {
	uc := &UserUseCase{
		repo:      repo,
		publisher: publisher,
		breakers:  breakers,
		log:       log,
		now:       time.Now,
	}
	uc.reads = degradedReadPolicy{log: log, now: uc.clock}
	return uc
}

func (uc *UserUseCase) clock() time.Time {
	return uc.now()
}

// CreateUserInput represents the input for creating a user
type CreateUserInput struct {
	Name  string
	Email string
	Age   int
}

// CreateUserOutput represents the output of creating a user
type CreateUserOutput struct {
	User *domain.User
}

// CreateUser validates and stores a new user, then announces it. A failed
// announcement is logged and does not affect the result.
func (uc *UserUseCase) CreateUser(ctx context.Context, input CreateUserInput) (*CreateUserOutput, error) {
	user, err := breaker.Run(uc.breakers.Get(BreakerUserService),
		func() (*domain.User, error) {
			return uc.create(ctx, input)
		},
		func(cause error) (*domain.User, error) {
			return nil, uc.unavailable(ctx, "create", cause)
		},
	)
	if err != nil {
		return nil, err
	}

	return &CreateUserOutput{User: user}, nil
}

func (uc *UserUseCase) create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	user, err := domain.NewUser(input.Name, input.Email, input.Age, uc.now())
	if err != nil {
		return nil, err
	}

	exists, err := uc.repo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, errors.NewInternal("failed to check email existence", err)
	}
	if exists {
		return nil, domain.ErrEmailExists
	}

	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, errors.NewInternal("failed to create user", err)
	}

	uc.announceCreated(ctx, user)

	uc.log.WithContext(ctx).Info("user created",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email),
	)

	return user, nil
}

func (uc *UserUseCase) announceCreated(ctx context.Context, user *domain.User) {
	if uc.publisher == nil {
		return
	}

	_, err := breaker.Run(uc.breakers.Get(BreakerUserEvents),
		func() (struct{}, error) {
			return struct{}{}, uc.publisher.Publish(ctx, events.NewUserCreated(user.Email, user.Name))
		},
		nil,
	)
	if err != nil {
		uc.log.WithContext(ctx).Error("failed to publish user created event",
			zap.Error(err),
			zap.Uint("user_id", user.ID),
		)
	}
}

// GetUserInput represents the input for getting a user
type GetUserInput struct {
	ID uint
}

// GetUserOutput represents the output of getting a user. Degraded is set
// when User is a placeholder served because the store could not answer.
type GetUserOutput struct {
	User     *domain.User
	Degraded bool
}

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, input GetUserInput) (*GetUserOutput, error) {
	degraded := false
	user, err := breaker.Run(uc.breakers.Get(BreakerUserService),
		func() (*domain.User, error) {
			return uc.repo.GetByID(ctx, input.ID)
		},
		func(cause error) (*domain.User, error) {
			u, err := uc.reads.recover(ctx, input.ID, cause)
			degraded = err == nil
			return u, err
		},
	)
	if err != nil {
		return nil, err
	}

	return &GetUserOutput{User: user, Degraded: degraded}, nil
}

// UpdateUserInput represents the input for updating a user
type UpdateUserInput struct {
	ID    uint
	Name  string
	Email string
	Age   int
}

// UpdateUserOutput represents the output of updating a user
type UpdateUserOutput struct {
	User *domain.User
}

// UpdateUser overwrites name, email and age of an existing user. No event is published.
func (uc *UserUseCase) UpdateUser(ctx context.Context, input UpdateUserInput) (*UpdateUserOutput, error) {
	user, err := breaker.Run(uc.breakers.Get(BreakerUserService),
		func() (*domain.User, error) {
			return uc.update(ctx, input)
		},
		func(cause error) (*domain.User, error) {
			return nil, uc.unavailable(ctx, "update", cause)
		},
	)
	if err != nil {
		return nil, err
	}

	return &UpdateUserOutput{User: user}, nil
}

func (uc *UserUseCase) update(ctx context.Context, input UpdateUserInput) (*domain.User, error) {
	if err := domain.ValidateFields(input.Name, input.Email, input.Age); err != nil {
		return nil, err
	}

	user, err := uc.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Email != user.Email {
		exists, err := uc.repo.ExistsByEmail(ctx, input.Email)
		if err != nil {
			return nil, errors.NewInternal("failed to check email existence", err)
		}
		if exists {
			return nil, domain.ErrEmailExists
		}
	}

	user.Apply(input.Name, input.Email, input.Age, uc.now())

	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, errors.NewInternal("failed to update user", err)
	}

	uc.log.WithContext(ctx).Info("user updated", zap.Uint("user_id", user.ID))
	return user, nil
}

// DeleteUserInput represents the input for deleting a user
type DeleteUserInput struct {
	ID uint
}

// DeleteUser removes a user and then announces the deletion. The row is
// removed before publishing; a publish failure fails the call but does not
// restore the row.
func (uc *UserUseCase) DeleteUser(ctx context.Context, input DeleteUserInput) error {
	_, err := breaker.Run(uc.breakers.Get(BreakerUserService),
		func() (struct{}, error) {
			return struct{}{}, uc.delete(ctx, input.ID)
		},
		func(cause error) (struct{}, error) {
			return struct{}{}, uc.unavailable(ctx, "delete", cause)
		},
	)
	return err
}

func (uc *UserUseCase) delete(ctx context.Context, id uint) error {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return errors.NewInternal("failed to delete user", err)
	}

	uc.log.WithContext(ctx).Info("user deleted", zap.Uint("user_id", id))

	if uc.publisher == nil {
		return nil
	}
	if err := uc.publisher.Publish(ctx, events.NewUserDeleted(user.Email, user.Name)); err != nil {
		return errors.NewInternal("failed to publish user deleted event", err)
	}
	return nil
}

// unavailable is the write-path fallback: every failure surfaces as
// ServiceUnavailable wrapping its cause.
func (uc *UserUseCase) unavailable(ctx context.Context, op string, cause error) error {
	log := uc.log.WithContext(ctx).With(zap.String("operation", op), zap.Error(cause))
	if errors.IsClientError(cause) {
		log.Debug("user operation rejected")
	} else {
		log.Warn("user operation failed, reporting service unavailable")
	}
	return errors.NewServiceUnavailable("service unavailable", cause)
}

// ServiceInfo describes the service for discovery
type ServiceInfo struct {
	Service   string   `json:"service"`
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}

// Info returns the static service description
func (uc *UserUseCase) Info() ServiceInfo {
	return ServiceInfo{
		Service: "user-service",
		Status:  "running",
		Endpoints: []string{
			"GET /api/users/{id}",
			"POST /api/users",
			"PUT /api/users/{id}",
			"DELETE /api/users/{id}",
		},
	}
}
