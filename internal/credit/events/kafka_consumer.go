package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Request asks for an analysis of Document, the extractor input.
type Request struct {
	RequestID string          `json:"request_id"`
	Document  json.RawMessage `json:"document"`
}

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads analysis requests. A failed request is retried in place
// before the next message is fetched: kafka-go commits offsets per partition,
// so committing a later message would skip it for good.
type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler func(context.Context, Request) error
	retry   func() backoff.BackOff
	done    chan struct{}
}

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	}), logger)
}

func newConsumer(reader KafkaReader, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		logger: logger.Named("kafka_consumer"),
		retry:  handlerBackOff,
		done:   make(chan struct{}),
	}
}

// handlerBackOff never gives up; only cancelling the consumer stops retries.
func handlerBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func (c *Consumer) RegisterHandler(fn func(context.Context, Request) error) {
	c.handler = fn
}

// Start consumes in the background until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		c.consume(ctx)
	}()
}

func (c *Consumer) consume(ctx context.Context) {
	if c.handler == nil {
		c.logger.Error("No handler registered, not consuming")
		return
	}
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var req Request
	if err := json.Unmarshal(msg.Value, &req); err != nil || len(req.Document) == 0 {
		// a malformed envelope can never succeed; commit it so it is not redelivered
		c.logger.Error("Failed to parse request",
			zap.Error(err),
			zap.ByteString("value", msg.Value),
		)
		c.commit(ctx, msg, "")
		return
	}
	err := backoff.RetryNotify(func() error {
		return c.handler(WithRequestID(ctx, req.RequestID), req)
	}, backoff.WithContext(c.retry(), ctx), func(err error, wait time.Duration) {
		c.logger.Error("Failed to handle request",
			zap.Error(err),
			zap.String("request_id", req.RequestID),
			zap.Duration("retry_in", wait),
		)
	})
	if err != nil {
		// stopped while retrying; the offset stays put for the next member
		c.logger.Warn("Request left uncommitted",
			zap.Error(err),
			zap.String("request_id", req.RequestID),
		)
		return
	}
	c.commit(ctx, msg, req.RequestID)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, requestID string) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
	}
}

// Close closes the reader. Cancel the Start context and wait on Done first.
func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}

// Done is closed when the loop started by Start has returned.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}
