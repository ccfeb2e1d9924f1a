package publish

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/monitor"
	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/retry"
	"github.com/smukkama/water-monitor/pkg/config"
)

// MQTTSink publishes each reading to a broker topic at QoS 0
type MQTTSink struct {
	client    mqtt.Client
	topic     string
	stationID string
}

// ConnectMQTT connects to the broker, retrying with backoff
func ConnectMQTT(ctx context.Context, cfg config.MQTTConfig, stationID string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)

	log := logger.WithComponent("mqtt")
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	})

	var client mqtt.Client
	err := retry.Do(ctx, "mqtt", retry.DefaultPolicy, func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return token.Error()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("broker", cfg.Broker).Str("topic", cfg.Topic).Msg("connected to mqtt broker")
	return NewMQTTSink(client, cfg.Topic, stationID), nil
}

// NewMQTTSink wraps a connected client
func NewMQTTSink(client mqtt.Client, topic, stationID string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, stationID: stationID}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Publish sends the tick's reading
func (s *MQTTSink) Publish(ctx context.Context, ev monitor.Event) error {
	if ev.Kind != monitor.EventTick {
		return nil
	}

	payload, err := protocol.EncodeReadingMessage(&protocol.ReadingMessage{
		StationID: s.stationID,
		Tick:      ev.Tick,
		Reading:   ev.Reading,
	})
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	token := s.client.Publish(s.topic, 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}
	return nil
}

// Close disconnects from the broker
func (s *MQTTSink) Close() {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
