package application

import (
	"context"

	"go.uber.org/zap"

	"user-lifecycle/internal/notifications/domain"
	"user-lifecycle/internal/notifications/ports"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/logger"
)

// BreakerEmailService guards the mail transport
const BreakerEmailService = "emailService"

// MailGateway sends mail through the emailService breaker. Callers only
// learn whether the mail left; failures never propagate.
type MailGateway struct {
	mailer   ports.Mailer
	recorder ports.DeliveryRecorder
	breakers *breaker.Registry
	log      *logger.Logger
}

// NewMailGateway creates a mail gateway. recorder may be nil.
func NewMailGateway(mailer ports.Mailer, recorder ports.DeliveryRecorder, breakers *breaker.Registry, log *logger.Logger) *MailGateway {
	return &MailGateway{
		mailer:   mailer,
		recorder: recorder,
		breakers: breakers,
		log:      log,
	}
}

// Send delivers msg and reports whether it was handed to the transport
func (g *MailGateway) Send(ctx context.Context, msg domain.Message) bool {
	sent, _ := breaker.Run(g.breakers.Get(BreakerEmailService),
		func() (bool, error) {
			if err := msg.Validate(); err != nil {
				return false, err
			}
			if err := g.mailer.Send(ctx, msg); err != nil {
				return false, errors.NewSendFailed(msg.To, err)
			}
			return true, nil
		},
		func(cause error) (bool, error) {
			g.log.WithContext(ctx).Error("service unavailable for "+msg.To,
				zap.String("subject", msg.Subject),
				zap.Error(cause),
			)
			return false, nil
		},
	)

	if sent {
		g.log.WithContext(ctx).Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
		record(ctx, g.recorder, g.log, domain.OutcomeSent)
	} else {
		record(ctx, g.recorder, g.log, domain.OutcomeFailed)
	}
	return sent
}

// Stats returns the delivery counters
func (g *MailGateway) Stats(ctx context.Context) (domain.DeliveryStats, error) {
	if g.recorder == nil {
		return domain.DeliveryStats{}, nil
	}
	stats, err := g.recorder.Stats(ctx)
	if err != nil {
		return domain.DeliveryStats{}, errors.NewServiceUnavailable("delivery statistics unavailable", err)
	}
	return stats, nil
}

func record(ctx context.Context, recorder ports.DeliveryRecorder, log *logger.Logger, outcome domain.Outcome) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, outcome); err != nil {
		log.WithContext(ctx).Warn("failed to record delivery outcome",
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}
