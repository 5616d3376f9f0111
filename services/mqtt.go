package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"plant-disease-api/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const mqttConnectTimeout = 10 * time.Second

// MQTTPublisher forwards events to an MQTT broker so field devices can follow
// new diagnoses.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

func NewMQTTPublisher(cfg config.MQTTConfig, logger logrus.FieldLogger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID("plantdoc-api-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.OnConnect = func(client mqtt.Client) {
		logger.WithField("broker", cfg.URL).Info("mqtt connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.WithError(err).Warn("mqtt connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.URL, err)
	}

	return &MQTTPublisher{client: client, prefix: cfg.TopicPrefix}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	token := p.client.Publish(topicFor(p.prefix, channel), 1, false, data)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// topicFor maps a pub/sub channel such as "plantdoc:predictions" onto an MQTT
// topic below prefix.
func topicFor(prefix, channel string) string {
	parts := strings.Split(channel, ":")
	if len(parts) > 1 && parts[0] == prefix {
		parts = parts[1:]
	}
	topic := strings.Join(parts, "/")
	if prefix == "" {
		return topic
	}
	return prefix + "/" + topic
}
