package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"user-lifecycle/internal/users/domain"
	"user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/logger"
)

// degradedReadPolicy is the read-path fallback. A missing record stays
// NotFound; any other failure, including an open breaker, is answered with
// a placeholder record instead of an error.
type degradedReadPolicy struct {
	log *logger.Logger
	now func() time.Time
}

func (p degradedReadPolicy) recover(ctx context.Context, id uint, cause error) (*domain.User, error) {
	if errors.Is(cause, errors.CodeNotFound) {
		return nil, cause
	}

	p.log.WithContext(ctx).Warn("serving placeholder user",
		zap.Uint("user_id", id),
		zap.Error(cause),
	)
	return domain.Placeholder(id, p.now()), nil
}
