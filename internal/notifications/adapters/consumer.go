package adapters

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"user-lifecycle/pkg/events"
	"user-lifecycle/pkg/logger"
	"user-lifecycle/pkg/nsq"
	"user-lifecycle/pkg/rabbitmq"
)

// Dispatcher receives decoded lifecycle events
type Dispatcher interface {
	Dispatch(ctx context.Context, event events.LifecycleEvent)
}

// EventHandler decodes message bodies for the dispatcher. discard is the
// transport's dead-letter sentinel, wrapped around decode failures.
type EventHandler struct {
	dispatcher Dispatcher
	discard    error
	log        *logger.Logger
}

func newEventHandler(dispatcher Dispatcher, discard error, log *logger.Logger) *EventHandler {
	return &EventHandler{dispatcher: dispatcher, discard: discard, log: log}
}

// Handle is a MessageHandler for either transport. A cancelled context is
// returned as is so the transport redelivers the message.
func (h *EventHandler) Handle(ctx context.Context, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event, err := events.Decode(body)
	if err != nil {
		h.log.WithContext(ctx).Error("malformed user event", zap.Error(err), zap.ByteString("body", body))
		return fmt.Errorf("%w: %w", h.discard, err)
	}

	h.dispatcher.Dispatch(ctx, event)
	return nil
}

// RabbitMQEventConsumer consumes user events from the user-events exchange
type RabbitMQEventConsumer struct {
	consumer *rabbitmq.Consumer
	handler  *EventHandler
}

// NewRabbitMQEventConsumer declares the queue bound to every user routing key
func NewRabbitMQEventConsumer(conn *rabbitmq.Connection, queue string, dispatcher Dispatcher, log *logger.Logger) (*RabbitMQEventConsumer, error) {
	consumer, err := rabbitmq.NewConsumer(
		conn,
		queue,
		events.Topic,
		[]string{events.RoutingKeyUserAll},
		log,
	)
	if err != nil {
		return nil, err
	}

	return &RabbitMQEventConsumer{
		consumer: consumer,
		handler:  newEventHandler(dispatcher, rabbitmq.ErrDiscard, log),
	}, nil
}

// Start starts consuming until ctx is done
func (c *RabbitMQEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handler.Handle)
}

// NSQEventConsumer consumes user events from the user-events topic
type NSQEventConsumer struct {
	consumer *nsq.Consumer
	handler  *EventHandler
}

// NewNSQEventConsumer subscribes channel to the user-events topic. Malformed
// messages are republished to the dead-letter topic through dlq when set.
func NewNSQEventConsumer(cfg nsq.ConsumerConfig, dlq *nsq.Producer, dispatcher Dispatcher, log *logger.Logger) (*NSQEventConsumer, error) {
	cfg.Topic = events.Topic
	if cfg.DLQTopic == "" {
		cfg.DLQTopic = events.Topic + ".dlq"
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = 1
	}

	consumer, err := nsq.NewConsumer(cfg, dlq, log)
	if err != nil {
		return nil, err
	}

	return &NSQEventConsumer{
		consumer: consumer,
		handler:  newEventHandler(dispatcher, nsq.ErrDiscard, log),
	}, nil
}

// Start connects and consumes until ctx is done
func (c *NSQEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handler.Handle)
}
