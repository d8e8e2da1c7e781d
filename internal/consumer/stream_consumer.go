package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "floodwatch/common/redis"
	"floodwatch/internal/service"
)

const (
	DefaultDispatchGroup = "floodwatch-dispatch"
	defaultBatchSize     = 50
	defaultBlock         = 2 * time.Second
	defaultRetryEvery    = 30 * time.Second
	maxBackoff           = 30 * time.Second
)

// DispatchConsumer forwards rescue-request events from the Redis stream to
// rescuer handsets on {prefix}{status}.
type DispatchConsumer struct {
	redisClient *redis.Client
	devices     service.MessagePublisher
	stream      string
	group       string
	consumer    string
	prefix      string
	block       time.Duration
	retryEvery  time.Duration
	lastRetry   time.Time
	logger      *zap.Logger
}

func NewDispatchConsumer(
	redisClient *redis.Client,
	devices service.MessagePublisher,
	consumerName string,
	topicPrefix string,
	logger *zap.Logger,
) *DispatchConsumer {
	if topicPrefix == "" {
		topicPrefix = "floodwatch/dispatch/"
	}
	return &DispatchConsumer{
		redisClient: redisClient,
		devices:     devices,
		stream:      service.RescueStream,
		group:       DefaultDispatchGroup,
		consumer:    consumerName,
		prefix:      topicPrefix,
		block:       defaultBlock,
		retryEvery:  defaultRetryEvery,
		logger:      logger,
	}
}

// Start creates the consumer group and consumes until ctx is done. Read
// errors back off exponentially up to maxBackoff. Entries left pending are
// retried on startup and then every retryEvery.
func (c *DispatchConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.group); err != nil {
		return err
	}
	c.logger.Info("Dispatch consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.group),
		zap.String("consumer_name", c.consumer),
	)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if time.Since(c.lastRetry) >= c.retryEvery {
			if err := c.redeliver(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("Failed to redeliver pending rescue events", zap.Error(err))
			}
		}
		if err := c.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume dispatch stream", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

func (c *DispatchConsumer) consume(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(ctx, c.redisClient, c.stream, c.group, c.consumer, defaultBatchSize, c.block)
	if err != nil {
		return fmt.Errorf("failed to read from stream %s: %w", c.stream, err)
	}
	c.handle(ctx, messages)
	return nil
}

// redeliver retries entries this consumer read earlier but could not
// forward, including those left over from a previous run.
func (c *DispatchConsumer) redeliver(ctx context.Context) error {
	c.lastRetry = time.Now()
	messages, err := rediscommon.ReadPending(ctx, c.redisClient, c.stream, c.group, c.consumer, defaultBatchSize)
	if err != nil {
		return fmt.Errorf("failed to read pending from stream %s: %w", c.stream, err)
	}
	if len(messages) > 0 {
		c.logger.Info("Redelivering pending rescue events", zap.Int("count", len(messages)))
	}
	c.handle(ctx, messages)
	return nil
}

// handle forwards and acks each message. Failed forwards stay pending for
// the next redeliver pass.
func (c *DispatchConsumer) handle(ctx context.Context, messages []rediscommon.StreamMessage) {
	for _, msg := range messages {
		if err := c.forward(msg); err != nil {
			c.logger.Error("Failed to forward rescue event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if err := rediscommon.Ack(ctx, c.redisClient, c.stream, c.group, msg.ID); err != nil {
			c.logger.Warn("Failed to ack rescue event", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

// forward publishes one entry. Malformed entries are dropped (nil error) so
// they are acked and never redelivered.
func (c *DispatchConsumer) forward(msg rediscommon.StreamMessage) error {
	raw, _ := msg.Values["data"].(string)
	var ev service.RescueEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil || ev.Status == "" {
		c.logger.Warn("Dropping malformed rescue event", zap.String("message_id", msg.ID))
		return nil
	}
	if err := c.devices.Publish(c.prefix+string(ev.Status), 1, false, []byte(raw)); err != nil {
		return err
	}
	c.logger.Debug("Rescue event forwarded",
		zap.String("request_id", ev.RequestID),
		zap.String("type", ev.Type),
		zap.String("status", string(ev.Status)),
	)
	return nil
}
