package ports

import (
	"context"

	"user-lifecycle/internal/notifications/domain"
)

// Mailer hands a message to the mail transport
type Mailer interface {
	Send(ctx context.Context, msg domain.Message) error
}

// DeliveryRecorder counts notification outcomes
type DeliveryRecorder interface {
	Record(ctx context.Context, outcome domain.Outcome) error
	Stats(ctx context.Context) (domain.DeliveryStats, error)
}
