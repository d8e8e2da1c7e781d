package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultChannelPrefix Redis Pub/Sub channel per table: prefix + table.
const DefaultChannelPrefix = "floodwatch:changes:"

// RedisBridge publishes changes through Redis Pub/Sub and relays every
// change seen on Redis, including its own, into the local Hub. Several API
// instances sharing one Redis therefore see the same stream.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	prefix string
	logger *zap.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

func NewRedisBridge(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client: client,
		hub:    hub,
		prefix: DefaultChannelPrefix,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

var _ Publisher = (*RedisBridge)(nil)

// Publish sends c to Redis. When Redis is unreachable the change is still
// delivered to local subscribers.
func (b *RedisBridge) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+c.Table, payload).Err(); err != nil {
		b.logger.Warn("Redis publish failed, delivering locally only",
			zap.String("table", c.Table),
			zap.Error(err),
		)
		return b.hub.Publish(ctx, c)
	}
	return nil
}

// Ready is closed once Run has subscribed.
func (b *RedisBridge) Ready() <-chan struct{} {
	return b.ready
}

// Run relays Redis messages into the hub until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, b.prefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s*: %w", b.prefix, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.logger.Info("Realtime bridge subscribed", zap.String("pattern", b.prefix+"*"))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				b.logger.Warn("Dropping malformed change",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			if c.Table == "" {
				c.Table = strings.TrimPrefix(msg.Channel, b.prefix)
			}
			_ = b.hub.Publish(ctx, c)
		}
	}
}
