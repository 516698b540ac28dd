// Package nsq is the NSQ transport for lifecycle events, used when the
// deployment runs nsqd instead of RabbitMQ.
package nsq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gonsq "github.com/nsqio/go-nsq"
	"go.uber.org/zap"

	"user-lifecycle/pkg/logger"
)

const (
	userAgent            = "user-lifecycle"
	defaultHandleTimeout = 30 * time.Second
)

// ErrDiscard marks a message that must be finished without a retry.
var ErrDiscard = errors.New("discard message")

// Producer publishes JSON messages to nsqd
type Producer struct {
	p   *gonsq.Producer
	log *logger.Logger
}

// NewProducer connects to the nsqd TCP address and verifies it answers
func NewProducer(addr string, log *logger.Logger) (*Producer, error) {
	cfg := gonsq.NewConfig()
	cfg.UserAgent = userAgent

	p, err := gonsq.NewProducer(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}
	p.SetLogger(log.NSQ(), gonsq.LogLevelWarning)

	if err := p.Ping(); err != nil {
		p.Stop()
		return nil, fmt.Errorf("failed to reach nsqd %s: %w", addr, err)
	}

	log.Info("connected to nsqd", zap.String("addr", addr))
	return &Producer{p: p, log: log}, nil
}

// Publish encodes message as JSON and publishes it synchronously.
// go-nsq has no context support; ctx is only checked before sending.
func (p *Producer) Publish(ctx context.Context, topic string, message interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := p.p.Publish(topic, body); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.log.WithContext(ctx).Debug("message published", zap.String("topic", topic))
	return nil
}

func (p *Producer) publishRaw(topic string, body []byte) error {
	return p.p.Publish(topic, body)
}

// Stop closes the producer connection
func (p *Producer) Stop() {
	if p.p != nil {
		p.p.Stop()
	}
}

// ConsumerConfig describes a subscription
type ConsumerConfig struct {
	Topic         string
	Channel       string
	MaxInFlight   int
	NsqdAddrs     []string
	LookupdAddrs  []string
	DLQTopic      string
	HandleTimeout time.Duration
}

func (c ConsumerConfig) validate() error {
	if c.Topic == "" {
		return errors.New("topic is required")
	}
	if c.Channel == "" {
		return errors.New("channel is required")
	}
	if len(c.NsqdAddrs) == 0 && len(c.LookupdAddrs) == 0 {
		return errors.New("no nsqd address or lookupd configured")
	}
	return nil
}

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer delivers messages of one topic/channel to a handler
type Consumer struct {
	cfg      ConsumerConfig
	consumer *gonsq.Consumer
	dlq      *Producer
	log      *logger.Logger
}

// NewConsumer creates a consumer. dlq may be nil, in which case discarded
// messages are only logged.
func NewConsumer(cfg ConsumerConfig, dlq *Producer, log *logger.Logger) (*Consumer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.HandleTimeout == 0 {
		cfg.HandleTimeout = defaultHandleTimeout
	}

	nsqCfg := gonsq.NewConfig()
	nsqCfg.UserAgent = userAgent
	if cfg.MaxInFlight > 0 {
		nsqCfg.MaxInFlight = cfg.MaxInFlight
	}

	consumer, err := gonsq.NewConsumer(cfg.Topic, cfg.Channel, nsqCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ consumer: %w", err)
	}
	consumer.SetLogger(log.NSQ(), gonsq.LogLevelInfo)

	return &Consumer{cfg: cfg, consumer: consumer, dlq: dlq, log: log}, nil
}

// Consume registers handler and connects. The consumer stops when ctx is done.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.consumer.AddHandler(gonsq.HandlerFunc(func(m *gonsq.Message) error {
		return c.handle(ctx, m.Body, m.Attempts, handler)
	}))

	for _, addr := range c.cfg.NsqdAddrs {
		if err := c.consumer.ConnectToNSQD(addr); err != nil {
			return fmt.Errorf("failed to connect to nsqd %s: %w", addr, err)
		}
	}
	for _, addr := range c.cfg.LookupdAddrs {
		if err := c.consumer.ConnectToNSQLookupd(addr); err != nil {
			return fmt.Errorf("failed to connect to lookupd %s: %w", addr, err)
		}
	}

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	c.log.Info("consumer started",
		zap.String("topic", c.cfg.Topic),
		zap.String("channel", c.cfg.Channel),
	)
	return nil
}

// handle returns nil to finish the message and an error to have NSQ requeue it.
func (c *Consumer) handle(ctx context.Context, body []byte, attempts uint16, handler MessageHandler) error {
	msgCtx, cancel := context.WithTimeout(ctx, c.cfg.HandleTimeout)
	defer cancel()

	err := handler(msgCtx, body)
	if err == nil {
		return nil
	}

	if !errors.Is(err, ErrDiscard) {
		c.log.Error("failed to handle message, requeueing",
			zap.Error(err),
			zap.String("topic", c.cfg.Topic),
			zap.Uint16("attempts", attempts),
		)
		return err
	}

	c.log.Error("message discarded", zap.Error(err), zap.String("topic", c.cfg.Topic))
	if c.dlq != nil && c.cfg.DLQTopic != "" {
		if dlqErr := c.dlq.publishRaw(c.cfg.DLQTopic, body); dlqErr != nil {
			c.log.Error("failed to publish message to DLQ", zap.Error(dlqErr), zap.String("dlq_topic", c.cfg.DLQTopic))
		}
	}
	return nil
}

// Stop stops the consumer and blocks until in-flight messages are handled
func (c *Consumer) Stop() {
	c.consumer.Stop()
	<-c.consumer.StopChan
}
