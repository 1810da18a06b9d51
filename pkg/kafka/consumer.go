package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one event. Returning an error triggers a retry.
type Handler func(ctx context.Context, event *Event) error

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deadLetterer receives messages that exhausted their retries.
type deadLetterer interface {
	Publish(ctx context.Context, msg kafka.Message, cause error, group string) error
}

// ConsumerConfig selects the topic and consumer group.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topic      string
	MaxRetries int
	RetryDelay time.Duration
}

// Consumer reads a topic within a group and feeds events to a Handler.
// Failed events are retried with linear backoff and then dead-lettered (if a
// DLQ is configured) and committed so the partition keeps moving.
type Consumer struct {
	reader    messageReader
	cfg       ConsumerConfig
	handler   Handler
	dlq       deadLetterer
	logger    *slog.Logger
	closeOnce sync.Once
}

func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})
	return newConsumer(reader, cfg, handler, logger)
}

func newConsumer(reader messageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	return &Consumer{reader: reader, cfg: cfg, handler: handler, logger: logger}
}

// WithDLQ routes exhausted messages to dlq.
func (c *Consumer) WithDLQ(dlq *DLQProducer) *Consumer {
	if dlq != nil {
		c.dlq = dlq
	}
	return c
}

// Start consumes until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started",
		slog.String("topic", c.cfg.Topic),
		slog.String("group", c.cfg.GroupID),
	)
	defer c.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopped", slog.String("topic", c.cfg.Topic))
				return nil
			}
			c.logger.Error("fetch message failed", slog.String("error", err.Error()))
			continue
		}
		c.process(ctx, msg)
	}
}

// process handles one message and commits it whatever the outcome.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	labels := []string{msg.Topic, c.cfg.GroupID}
	start := time.Now()
	defer func() {
		consumerDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("undecodable message", slog.String("topic", msg.Topic), slog.String("error", err.Error()))
		consumerFailed.WithLabelValues(labels...).Inc()
		c.deadLetter(ctx, msg, err)
		return
	}

	if err := c.handleWithRetry(ctx, event); err != nil {
		c.logger.Error("handler gave up",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		consumerFailed.WithLabelValues(labels...).Inc()
		c.deadLetter(ctx, msg, err)
		return
	}
	consumerProcessed.WithLabelValues(labels...).Inc()
}

func (c *Consumer) handleWithRetry(ctx context.Context, event *Event) error {
	var err error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err = c.handler(ctx, event); err == nil {
			return nil
		}
		c.logger.Warn("handler failed",
			slog.String("event_type", event.EventType),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt == c.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.cfg.RetryDelay):
		}
	}
	return err
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.cfg.GroupID); err != nil {
		c.logger.Error("dead-letter publish failed", slog.String("error", err.Error()))
	}
}

// Close releases the reader. Safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.reader.Close() })
	return err
}
