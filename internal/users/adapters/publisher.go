package adapters

import (
	"context"

	"user-lifecycle/pkg/events"
	"user-lifecycle/pkg/nsq"
	"user-lifecycle/pkg/rabbitmq"
)

// RabbitMQPublisher implements EventPublisher using the user-events exchange
type RabbitMQPublisher struct {
	publisher *rabbitmq.Publisher
}

// NewRabbitMQPublisher creates a new RabbitMQ event publisher
func NewRabbitMQPublisher(publisher *rabbitmq.Publisher) *RabbitMQPublisher {
	return &RabbitMQPublisher{publisher: publisher}
}

// Publish routes the event by its operation (user.create, user.delete)
func (p *RabbitMQPublisher) Publish(ctx context.Context, event events.LifecycleEvent) error {
	return p.publisher.Publish(ctx, event.Operation.RoutingKey(), event)
}

// NSQPublisher implements EventPublisher on the user-events NSQ topic
type NSQPublisher struct {
	producer *nsq.Producer
	topic    string
}

// NewNSQPublisher creates a new NSQ event publisher
func NewNSQPublisher(producer *nsq.Producer) *NSQPublisher {
	return &NSQPublisher{producer: producer, topic: events.Topic}
}

// Publish sends the event to the topic
func (p *NSQPublisher) Publish(ctx context.Context, event events.LifecycleEvent) error {
	return p.producer.Publish(ctx, p.topic, event)
}
