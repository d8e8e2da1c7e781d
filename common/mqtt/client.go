// Package mqtt wraps paho for the locator consumer and the alert/dispatch
// device publishers.
package mqtt

import (
	"fmt"
	"sync"
	"time"

	"floodwatch/common/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 10 * time.Second
)

// MessageHandler handles one inbound message. A returned error is logged and the
// message is dropped.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client wraps a paho client. Subscriptions are remembered and restored
// after every reconnect, since the session is clean.
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// NewClient connects to the broker; auto-reconnect is enabled.
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	c := &Client{
		config: cfg,
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
	})
	opts.SetOnConnectHandler(func(mqtt.Client) { c.resubscribe() })

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	logger.Info("MQTT connected", zap.String("broker", cfg.Broker), zap.String("client_id", cfg.ClientID))
	return c, nil
}

// Subscribe registers handler for topic and keeps it across reconnects.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := c.subscribe(topic, subscription{qos: qos, handler: handler}); err != nil {
		return err
	}
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

func (c *Client) subscribe(topic string, s subscription) error {
	token := c.client.Subscribe(topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		if err := s.handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("Error handling MQTT message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

// resubscribe runs on every (re)connect. On the first connect subs is empty.
func (c *Client) resubscribe() {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for t, s := range c.subs {
		subs[t] = s
	}
	c.mu.Unlock()

	for topic, s := range subs {
		if err := c.subscribe(topic, s); err != nil {
			c.logger.Error("Failed to restore subscription", zap.String("topic", topic), zap.Error(err))
			continue
		}
		c.logger.Info("Restored subscription", zap.String("topic", topic))
	}
}

// Publish sends payload and waits up to publishTimeout for the broker ack.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()

	token := c.client.Unsubscribe(topics...)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}
	return nil
}

// Disconnect waits up to 250ms for in-flight work.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
