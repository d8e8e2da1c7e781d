// Package redis holds the shared Redis connection setup and the stream
// helpers used by the rescue dispatch pipeline.
package redis

import (
	"context"
	"fmt"
	"time"

	"floodwatch/common/config"

	"github.com/go-redis/redis/v8"
)

const connectTimeout = 5 * time.Second

// NewRedisClient builds a client without dialing.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Connect builds a client and verifies it with a bounded PING. The client is
// closed again when the ping fails.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := NewRedisClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Close closes client if it is non-nil.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
