package tsdb

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/retry"
	"github.com/smukkama/water-monitor/pkg/config"
)

// Measurement is the InfluxDB measurement readings are stored under
const Measurement = "water_quality"

// Writer stores readings as InfluxDB points
type Writer struct {
	client influxdb2.Client
	api    api.WriteAPIBlocking
}

// Connect creates a client and waits for the server to answer a ping
func Connect(ctx context.Context, cfg config.InfluxConfig) (*Writer, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	err := retry.Do(ctx, "influx ping", retry.DefaultPolicy, func() error {
		ok, err := client.Ping(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("influx not ready")
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach influx at %s: %w", cfg.URL, err)
	}

	return &Writer{
		client: client,
		api:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// WriteReadings writes one point per message
func (w *Writer) WriteReadings(ctx context.Context, msgs []*protocol.ReadingMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(msgs))
	for _, m := range msgs {
		points = append(points, Point(m))
	}
	return w.api.WritePoint(ctx, points...)
}

// Close releases the client
func (w *Writer) Close() {
	w.client.Close()
}

// Point converts a reading message into a point tagged by station
func Point(m *protocol.ReadingMessage) *write.Point {
	r := m.Reading
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"station": m.StationID},
		map[string]interface{}{
			"tick":             int64(m.Tick),
			"ph":               r.PH,
			"tds":              r.TDS,
			"turbidity":        r.Turbidity,
			"dissolved_oxygen": r.DissolvedOxygen,
			"temperature":      r.Temperature,
			"conductivity":     r.Conductivity,
			"orp":              r.ORP,
			"wqi":              r.WQI,
		},
		r.Timestamp,
	)
}
