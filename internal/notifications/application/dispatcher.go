package application

import (
	"context"

	"go.uber.org/zap"

	"user-lifecycle/internal/notifications/domain"
	"user-lifecycle/internal/notifications/ports"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/events"
	"user-lifecycle/pkg/logger"
)

// BreakerEventConsumer guards event handling on the consumer side
const BreakerEventConsumer = "kafkaConsumer"

// NotificationDispatcher turns lifecycle events into mail. It never returns
// an error: an event that cannot be handled is dropped and counted.
type NotificationDispatcher struct {
	gateway  *MailGateway
	recorder ports.DeliveryRecorder
	breakers *breaker.Registry
	log      *logger.Logger
}

// NewNotificationDispatcher creates a dispatcher. recorder may be nil.
func NewNotificationDispatcher(gateway *MailGateway, recorder ports.DeliveryRecorder, breakers *breaker.Registry, log *logger.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		gateway:  gateway,
		recorder: recorder,
		breakers: breakers,
		log:      log,
	}
}

// Dispatch sends the mail matching event
func (d *NotificationDispatcher) Dispatch(ctx context.Context, event events.LifecycleEvent) {
	_, _ = breaker.Run(d.breakers.Get(BreakerEventConsumer),
		func() (struct{}, error) {
			d.handle(ctx, event)
			return struct{}{}, nil
		},
		func(cause error) (struct{}, error) {
			d.log.WithContext(ctx).Error("dropping user event",
				zap.String("operation", event.Operation.String()),
				zap.String("email", event.Email),
				zap.Error(cause),
			)
			record(ctx, d.recorder, d.log, domain.OutcomeDropped)
			return struct{}{}, nil
		},
	)
}

func (d *NotificationDispatcher) handle(ctx context.Context, event events.LifecycleEvent) {
	log := d.log.WithContext(ctx).With(
		zap.String("operation", event.Operation.String()),
		zap.String("email", event.Email),
	)

	msg, ok := domain.MessageFor(event)
	if !ok {
		log.Debug("ignoring user event")
		record(ctx, d.recorder, d.log, domain.OutcomeIgnored)
		return
	}

	log.Info("received user event")
	d.gateway.Send(ctx, msg)
}
