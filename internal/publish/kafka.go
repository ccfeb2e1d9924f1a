package publish

import (
	"context"
	"fmt"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/monitor"
	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/quality"
)

// Publisher writes a keyed message to a topic. *queue.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// KafkaSink publishes readings and alerts to their topics
type KafkaSink struct {
	stationID string
	readings  Publisher
	alerts    Publisher
}

// NewKafkaSink creates a sink over the readings and alerts producers
func NewKafkaSink(stationID string, readings, alerts Publisher) *KafkaSink {
	return &KafkaSink{stationID: stationID, readings: readings, alerts: alerts}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Publish sends the tick's reading and one message per new alert
func (s *KafkaSink) Publish(ctx context.Context, ev monitor.Event) error {
	if ev.Kind != monitor.EventTick {
		return nil
	}

	data, err := protocol.EncodeReadingMessage(&protocol.ReadingMessage{
		StationID: s.stationID,
		Tick:      ev.Tick,
		Reading:   ev.Reading,
	})
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}
	if err := s.readings.Publish(ctx, s.stationID, data); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}

	for _, alert := range ev.NewAlerts {
		n := alertNotification(s.stationID, alert, ev.Parameters)
		data, err := protocol.EncodeAlertNotification(n)
		if err != nil {
			return fmt.Errorf("failed to encode alert: %w", err)
		}
		if err := s.alerts.Publish(ctx, n.Key(), data); err != nil {
			return fmt.Errorf("failed to publish alert %s: %w", alert.ID, err)
		}
	}

	return nil
}

// alertNotification attaches the parameter reading that raised the alert
func alertNotification(stationID string, alert alarming.Alert, params []quality.Parameter) *protocol.AlertNotification {
	n := &protocol.AlertNotification{
		StationID: stationID,
		Alert:     alert,
		RaisedAt:  alert.Timestamp,
	}
	for _, p := range params {
		if p.Name == alert.Parameter {
			n.ParameterID = p.ID
			n.Value = p.Value
			n.Unit = p.Unit
			break
		}
	}
	return n
}
