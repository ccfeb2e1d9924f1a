// Package archive turns consumed Kafka batches into long-term storage writes.
package archive

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/water-monitor/internal/database"
	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/metrics"
	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/queue"
)

// ReadingWriter stores readings. *tsdb.Writer satisfies it.
type ReadingWriter interface {
	WriteReadings(ctx context.Context, msgs []*protocol.ReadingMessage) error
}

// AlertInserter stores one alert row. *database.DB satisfies it.
type AlertInserter interface {
	InsertAlertLog(ctx context.Context, a *database.AlertLog) (bool, error)
}

// Readings writes a batch of reading messages in one call. Undecodable
// messages are skipped and still acknowledged; a failed write acknowledges nothing.
func Readings(w ReadingWriter) queue.BatchHandler {
	log := logger.WithComponent("archive").With().Str("store", "influx").Logger()

	return func(ctx context.Context, batch []kafka.Message) []kafka.Message {
		msgs := make([]*protocol.ReadingMessage, 0, len(batch))
		for _, m := range batch {
			r, err := protocol.DecodeReadingMessage(m.Value)
			if err != nil {
				log.Warn().Err(err).Int64("offset", m.Offset).Msg("skipping undecodable reading")
				continue
			}
			msgs = append(msgs, r)
		}

		if err := w.WriteReadings(ctx, msgs); err != nil {
			log.Error().Err(err).Int("count", len(msgs)).Msg("failed to write readings")
			metrics.ArchiverWritesTotal.WithLabelValues("influx", "error").Add(float64(len(msgs)))
			return nil
		}

		metrics.ArchiverWritesTotal.WithLabelValues("influx", "ok").Add(float64(len(msgs)))
		return batch
	}
}

// Alerts inserts alerts in order and acknowledges those stored or skipped
// as duplicates. It stops at the first failed insert since nothing after it
// can be committed until it succeeds.
func Alerts(db AlertInserter) queue.BatchHandler {
	log := logger.WithComponent("archive").With().Str("store", "postgres").Logger()

	return func(ctx context.Context, batch []kafka.Message) []kafka.Message {
		handled := make([]kafka.Message, 0, len(batch))
		for _, m := range batch {
			n, err := protocol.DecodeAlertNotification(m.Value)
			if err != nil {
				log.Warn().Err(err).Int64("offset", m.Offset).Msg("skipping undecodable alert")
				handled = append(handled, m)
				continue
			}

			inserted, err := db.InsertAlertLog(ctx, database.NewAlertLog(n))
			if err != nil {
				log.Error().Err(err).Str("alert_id", n.Alert.ID).Msg("failed to insert alert")
				metrics.ArchiverWritesTotal.WithLabelValues("postgres", "error").Inc()
				return handled
			}

			status := "ok"
			if !inserted {
				status = "duplicate"
			}
			metrics.ArchiverWritesTotal.WithLabelValues("postgres", status).Inc()
			handled = append(handled, m)
		}
		return handled
	}
}
