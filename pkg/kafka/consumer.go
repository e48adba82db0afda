package kafka

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"
	kafka_config "tourbook/pkg/kafka/config"
	"tourbook/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const maxDLQBackoff = 30 * time.Second

// messageReader is the subset of *kafka.Reader the consumer relies on.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader       messageReader
	dlqWriter    messageWriter
	topic        string
	groupID      string
	maxRetries   int
	retryBackoff time.Duration
	handler      MessageHandler
	middleware   []ConsumerMiddleware
	log          *logger.Logger
	closed       bool
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

// NewConsumer joins groupID on topic. Messages whose handler fails
// permanently, or transiently more than ConsumerMaxRetries times, are copied
// to dlqTopic (when set) and committed once the DLQ accepted them.
func NewConsumer(cfg *kafka_config.Config, topic, groupID, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		CommitInterval:    cfg.ConsumerCommitInterval,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		Logger:            kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger:       errorLogger(log, "consumer", topic),
	})

	var dlqWriter messageWriter
	if dlqTopic != "" {
		dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  compression(cfg.ProducerCompression),
			MaxAttempts:  cfg.ProducerMaxAttempts,
			WriteTimeout: cfg.ProducerWriteTimeout,
			Logger:       kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger:  errorLogger(log, "dlq", dlqTopic),
		}
	}

	return newConsumer(reader, dlqWriter, topic, groupID, cfg.ConsumerMaxRetries, cfg.ConsumerRetryBackoff, handler, log), nil
}

func newConsumer(
	reader messageReader,
	dlqWriter messageWriter,
	topic, groupID string,
	maxRetries int,
	retryBackoff time.Duration,
	handler MessageHandler,
	log *logger.Logger,
) *Consumer {
	return &Consumer{
		reader:       reader,
		dlqWriter:    dlqWriter,
		topic:        topic,
		groupID:      groupID,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		handler:      handler,
		middleware:   make([]ConsumerMiddleware, 0),
		log:          log.With("topic", topic, "group_id", groupID),
	}
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until ctx is cancelled. Offsets are committed only after the
// message was handled or dead-lettered, so a crash in between leads to
// redelivery rather than loss.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	c.log.Info("Kafka consumer started")

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrConsumerClosed) {
				return err
			}
			c.log.Error("Failed to fetch message", "error", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		msg := convertMessage(kafkaMsg)

		if err := c.processMessage(ctx, msg); err != nil {
			if ctx.Err() != nil {
				// Leave the offset uncommitted so the next owner redelivers.
				return ctx.Err()
			}
			c.log.Error("Message handling failed",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", msg.Key,
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Failed to commit offset", "offset", kafkaMsg.Offset, "error", err)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}
	return handler
}

// processMessage runs the handler, retrying transient failures with a
// doubling backoff. It returns the last handler error after dead-lettering,
// or ctx.Err() if cancelled mid-retry or before the DLQ accepted the message.
func (c *Consumer) processMessage(ctx context.Context, msg Message) error {
	handler := c.chain()
	backoff := c.retryBackoff

	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}

		retries := msg.GetRetryCount()
		if !ShouldRetry(err, retries, c.maxRetries) {
			if dlqErr := c.deadLetterUntilAccepted(ctx, msg, err); dlqErr != nil {
				return dlqErr
			}
			return err
		}

		c.log.Warn("Retrying message",
			"attempt", retries+1,
			"max_retries", c.maxRetries,
			"key", msg.Key,
			"error", err,
		)
		msg.IncrementRetryCount()
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
	}
}

// deadLetterUntilAccepted blocks until the DLQ write succeeds. The offset must
// not be committed past a message that is neither handled nor dead-lettered,
// so a DLQ outage stalls the partition instead of dropping the message.
func (c *Consumer) deadLetterUntilAccepted(ctx context.Context, msg Message, cause error) error {
	if c.dlqWriter == nil {
		return nil
	}

	backoff := max(c.retryBackoff, time.Millisecond)
	for {
		err := c.deadLetter(ctx, msg, cause)
		if err == nil {
			return nil
		}
		c.log.Error("Failed to send message to DLQ, retrying",
			"key", msg.Key,
			"offset", msg.Offset,
			"backoff", backoff,
			"error", err,
			"cause", cause,
		)
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = min(backoff*2, maxDLQBackoff)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg Message, cause error) error {

	headers := make(map[string]string, len(msg.Headers)+4)
	maps.Copy(headers, msg.Headers)
	headers[HeaderOriginalTopic] = c.topic
	headers[HeaderDLQError] = cause.Error()
	headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)
	headers[HeaderDLQGroup] = c.groupID
	msg.Headers = headers

	if err := c.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg, time.Now())); err != nil {
		return err
	}
	c.log.Warn("Message sent to DLQ", "key", msg.Key, "retries", msg.GetRetryCount(), "cause", cause)
	return nil
}

func convertMessage(kafkaMsg kafka.Message) Message {
	msg := Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}
	for _, header := range kafkaMsg.Headers {
		msg.Headers[header.Key] = string(header.Value)
	}
	return msg
}

// sleep waits for d or until ctx is done, reporting whether it waited fully.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close waits for Start to return, so cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	err := c.reader.Close()
	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
