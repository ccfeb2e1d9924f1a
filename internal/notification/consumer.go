package notification

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/protocol"
	"github.com/smukkama/water-monitor/internal/queue"
	"github.com/smukkama/water-monitor/internal/retry"
)

// AlertSender delivers one decoded alert
type AlertSender func(ctx context.Context, n *protocol.AlertNotification) error

// Consumer reads alerts from Kafka and commits each one only after it has
// been delivered. A message that keeps failing is retried in place, so the
// group never commits past it.
type Consumer struct {
	source queue.MessageSource
	send   AlertSender
	retry  retry.Policy
	pause  time.Duration
	log    zerolog.Logger
}

// NewConsumer creates a consumer that delivers alerts through send
func NewConsumer(source queue.MessageSource, send AlertSender) *Consumer {
	return &Consumer{
		source: source,
		send:   send,
		retry:  retry.DefaultPolicy,
		pause:  time.Second,
		log:    logger.WithComponent("notification-consumer"),
	}
}

// WithRetry sets the retry policy for a single delivery round
func (c *Consumer) WithRetry(policy retry.Policy) *Consumer {
	c.retry = policy
	return c
}

// Run consumes until ctx is done
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.source.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error().Err(err).Msg("failed to consume message")
			if !c.wait(ctx) {
				return
			}
			continue
		}

		if !c.handle(ctx, msg) {
			return
		}
	}
}

// handle delivers msg and commits it. It returns false when ctx ended first.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	n, err := protocol.DecodeAlertNotification(msg.Value)
	if err != nil {
		c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("dropping undecodable alert")
		c.commit(ctx, msg)
		return true
	}

	for {
		err := retry.Do(ctx, "alert "+n.Alert.ID, c.retry, func() error {
			return c.send(ctx, n)
		})
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return false
		}
		c.log.Error().
			Err(err).
			Str("alert_id", n.Alert.ID).
			Int64("offset", msg.Offset).
			Msg("notification still failing, holding offset")
		if !c.wait(ctx) {
			return false
		}
	}

	c.commit(ctx, msg)
	return true
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.source.Commit(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit offset")
	}
}

func (c *Consumer) wait(ctx context.Context) bool {
	select {
	case <-time.After(c.pause):
		return true
	case <-ctx.Done():
		return false
	}
}
