package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamMessage is one entry read from a Redis stream.
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// PublishToStream appends values to stream with XADD. Non-string values are
// stringified; anything that is not a scalar is JSON encoded.
func PublishToStream(ctx context.Context, client *redis.Client, stream string, values map[string]interface{}) (string, error) {
	streamValues := make(map[string]interface{}, len(values))
	for k, v := range values {
		var strValue string
		switch val := v.(type) {
		case string:
			strValue = val
		case []byte:
			strValue = string(val)
		case int:
			strValue = strconv.Itoa(val)
		case int64:
			strValue = strconv.FormatInt(val, 10)
		case float64:
			strValue = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			strValue = strconv.FormatBool(val)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			strValue = string(b)
		}
		streamValues[k] = strValue
	}

	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: streamValues,
	}).Result()
}

// PublishJSONToStream stores data as a JSON "data" field plus a unix "timestamp".
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data interface{}) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return PublishToStream(ctx, client, stream, map[string]interface{}{
		"data":      string(b),
		"timestamp": time.Now().Unix(),
	})
}

// ReadFromStream reads up to count new messages for consumer in consumerGroup,
// blocking for at most block.
func ReadFromStream(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	return readGroup(ctx, client, stream, consumerGroup, consumer, ">", count, block)
}

// ReadPending returns up to count messages already delivered to consumer but
// not acked, oldest first. It never blocks.
func ReadPending(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer string, count int64) ([]StreamMessage, error) {
	return readGroup(ctx, client, stream, consumerGroup, consumer, "0", count, -1)
}

func readGroup(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer, id string, count int64, block time.Duration) ([]StreamMessage, error) {
	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumer,
		Streams:  []string{stream, id},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []StreamMessage{}, nil
		}
		return nil, err
	}

	var messages []StreamMessage
	for _, s := range streams {
		for _, msg := range s.Messages {
			messages = append(messages, StreamMessage{
				Stream: s.Stream,
				ID:     msg.ID,
				Values: msg.Values,
			})
		}
	}
	return messages, nil
}

// Ack acknowledges ids for consumerGroup.
func Ack(ctx context.Context, client *redis.Client, stream, consumerGroup string, ids ...string) error {
	return client.XAck(ctx, stream, consumerGroup, ids...).Err()
}

// CreateConsumerGroup creates the group (and the stream when missing).
// An existing group is not an error.
func CreateConsumerGroup(ctx context.Context, client *redis.Client, stream string, groupName string) error {
	err := client.XGroupCreateMkStream(ctx, stream, groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", groupName, stream, err)
	}
	return nil
}
