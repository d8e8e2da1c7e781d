// Package consumer holds the floodwatch-locator consumers: GPS reports from
// MQTT and rescue-request events from the Redis stream.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	mqttcommon "floodwatch/common/mqtt"
	"floodwatch/internal/repository"
	"floodwatch/internal/service"
)

const handleTimeout = 5 * time.Second

// Subscriber is satisfied by *mqttcommon.Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// LocationConsumer persists GPS reports published on
// floodwatch/location/{user_id}. Reports go through the same per-session
// throttle as the HTTP endpoint.
type LocationConsumer struct {
	topic     string
	mqtt      Subscriber
	profiles  repository.ProfilesRepository
	locations service.ProfileService
	logger    *zap.Logger
	ctx       context.Context
}

func NewLocationConsumer(
	topic string,
	mqtt Subscriber,
	profiles repository.ProfilesRepository,
	locations service.ProfileService,
	logger *zap.Logger,
) *LocationConsumer {
	return &LocationConsumer{
		topic:     topic,
		mqtt:      mqtt,
		profiles:  profiles,
		locations: locations,
		logger:    logger,
		ctx:       context.Background(),
	}
}

// Start subscribes and blocks until ctx is done.
func (c *LocationConsumer) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.mqtt.Subscribe(c.topic, 1, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to location topic: %w", err)
	}
	c.logger.Info("Location consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

func (c *LocationConsumer) Stop() {
	if err := c.mqtt.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("Location consumer stopped")
}

// handleMessage topic format: floodwatch/location/{user_id}.
func (c *LocationConsumer) handleMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	userID := parts[len(parts)-1]
	if len(parts) < 2 || userID == "" || userID == "+" {
		return fmt.Errorf("invalid topic format: %s", topic)
	}

	var update service.LocationUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return fmt.Errorf("failed to unmarshal location report: %w", err)
	}

	ctx, cancel := context.WithTimeout(c.ctx, handleTimeout)
	defer cancel()

	profile, err := c.profiles.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("unknown reporter %s: %w", userID, err)
	}
	res, err := c.locations.UpdateLocation(ctx, profile, "mqtt:"+userID, update)
	if err != nil {
		return err
	}
	c.logger.Debug("Location report handled",
		zap.String("user_id", userID),
		zap.Bool("persisted", res.Persisted),
	)
	return nil
}
