package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"user-lifecycle/pkg/logger"
)

// ErrDiscard marks a message that must not be redelivered. Handlers wrap it
// to route a delivery to the dead-letter queue.
var ErrDiscard = errors.New("discard message")

const requeueDelay = time.Second

// Connection manages a RabbitMQ connection and its channel
type Connection struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *logger.Logger
	mu      sync.RWMutex
}

// NewConnection creates a new RabbitMQ connection
func NewConnection(url string, log *logger.Logger) (*Connection, error) {
	c := &Connection{
		url: url,
		log: log,
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	c.conn = conn
	c.channel = ch

	c.log.Info("connected to RabbitMQ")
	return nil
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// IsOpen reports whether the underlying connection is still usable
func (c *Connection) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close closes the channel and the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return nil
}

// Publisher publishes JSON messages to a topic exchange
type Publisher struct {
	conn     *Connection
	exchange string
	log      *logger.Logger
}

// NewPublisher creates a new publisher and declares its exchange
func NewPublisher(conn *Connection, exchange string, log *logger.Logger) (*Publisher, error) {
	if err := declareExchange(conn.Channel(), exchange); err != nil {
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		exchange: exchange,
		log:      log,
	}, nil
}

// Publish encodes message as JSON and sends it as a persistent delivery.
// It returns once the broker accepted the frame; no consumer ack is awaited.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	traceID := logger.GetTraceID(ctx)

	err = p.conn.Channel().PublishWithContext(
		ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now(),
			CorrelationId: traceID,
			Headers: amqp.Table{
				"x-trace-id": traceID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.log.WithContext(ctx).Debug("message published",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", routingKey),
	)

	return nil
}

// Consumer consumes messages from a queue bound to a topic exchange
type Consumer struct {
	conn        *Connection
	queue       string
	exchange    string
	routingKeys []string
	log         *logger.Logger
}

// DeadLetterExchange returns the name of the dead-letter exchange for exchange.
func DeadLetterExchange(exchange string) string {
	return exchange + ".dlx"
}

// DeadLetterQueue returns the name of the dead-letter queue for exchange.
func DeadLetterQueue(exchange string) string {
	return exchange + ".dlq"
}

// NewConsumer declares the exchange, the queue with its dead-letter
// topology, and the bindings for each routing key.
func NewConsumer(conn *Connection, queue, exchange string, routingKeys []string, log *logger.Logger) (*Consumer, error) {
	ch := conn.Channel()

	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}

	dlx := DeadLetterExchange(exchange)
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}
	dlq, err := ch.QueueDeclare(DeadLetterQueue(exchange), true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(dlq.Name, "", dlx, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange": dlx,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(queue, key, exchange, false, nil); err != nil {
			return nil, fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	// One unacknowledged delivery at a time keeps per-queue order.
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	return &Consumer{
		conn:        conn,
		queue:       queue,
		exchange:    exchange,
		routingKeys: routingKeys,
		log:         log,
	}, nil
}

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, body []byte) error

// Ack outcome of a handled delivery
type Ack int

const (
	AckDone Ack = iota
	AckRequeue
	AckDeadLetter
)

// Decide maps a handler result to an acknowledgement.
func Decide(err error) Ack {
	switch {
	case err == nil:
		return AckDone
	case errors.Is(err, ErrDiscard):
		return AckDeadLetter
	default:
		return AckRequeue
	}
}

// Consume starts a goroutine that delivers messages to handler until ctx is done
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	msgs, err := c.conn.Channel().Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					c.log.Warn("delivery channel closed", zap.String("queue", c.queue))
					return
				}
				c.handle(ctx, msg, handler)
			}
		}
	}()

	c.log.Info("consumer started",
		zap.String("queue", c.queue),
		zap.Strings("routing_keys", c.routingKeys),
	)

	return nil
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery, handler MessageHandler) {
	traceID, _ := msg.Headers["x-trace-id"].(string)
	msgCtx := logger.WithTraceIDContext(ctx, traceID)
	log := c.log.WithContext(msgCtx)

	log.Debug("message received",
		zap.String("queue", c.queue),
		zap.String("routing_key", msg.RoutingKey),
	)

	err := handler(msgCtx, msg.Body)
	switch Decide(err) {
	case AckDone:
		msg.Ack(false)
	case AckDeadLetter:
		log.Error("message dead-lettered", zap.Error(err), zap.String("queue", c.queue))
		msg.Nack(false, false)
	case AckRequeue:
		log.Error("failed to handle message, requeueing", zap.Error(err), zap.String("queue", c.queue))
		select {
		case <-ctx.Done():
		case <-time.After(requeueDelay):
		}
		msg.Nack(false, true)
	}
}
