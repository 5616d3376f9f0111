package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plant-disease-api/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PredictionsChannel carries PredictionEvent messages.
const PredictionsChannel = "plantdoc:predictions"

const (
	pingAttempts = 10
	pingInterval = 2 * time.Second
)

type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// EventBus publishes and subscribes over Redis pub/sub. With no client every
// call is a no-op, so the API runs without Redis.
type EventBus struct {
	client *redis.Client
}

func NewEventBus(cfg config.RedisConfig, logger logrus.FieldLogger) (*EventBus, error) {
	if !cfg.Enabled {
		return &EventBus{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for i := 0; i < pingAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return &EventBus{client: client}, nil
		}
		logger.WithError(lastErr).Warnf("redis ping attempt %d/%d failed", i+1, pingAttempts)
		time.Sleep(pingInterval)
	}

	client.Close()
	return &EventBus{}, fmt.Errorf("redis ping failed after %d attempts: %w", pingAttempts, lastErr)
}

func NewEventBusWithClient(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

func (b *EventBus) Available() bool {
	return b.client != nil
}

func (b *EventBus) Publish(ctx context.Context, channel string, message interface{}) error {
	if b.client == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, data).Err()
}

func (b *EventBus) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if b.client == nil {
		return nil
	}
	return b.client.Subscribe(ctx, channel)
}

func (b *EventBus) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// Fanout publishes every message to all of its publishers.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, channel string, message interface{}) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, channel, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
