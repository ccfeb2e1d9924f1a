package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/retry"
)

// MessageSource is the consuming side of a Kafka topic
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// BatchHandler processes a batch of messages and returns the ones it handled.
// Kafka commits are cumulative per partition, so only the leading run of
// handled messages is committed; everything from the first unhandled message
// on is retried and then carried into the next batch.
type BatchHandler func(ctx context.Context, batch []kafka.Message) []kafka.Message

// BatchWriter consumes from Kafka and hands messages to a handler in batches
type BatchWriter struct {
	name          string
	source        MessageSource
	handler       BatchHandler
	batchSize     int
	flushInterval time.Duration
	retry         retry.Policy
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	log           zerolog.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(name string, source MessageSource, handler BatchHandler, batchSize int, flushInterval time.Duration) *BatchWriter {
	if batchSize < 1 {
		batchSize = 1
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &BatchWriter{
		name:          name,
		source:        source,
		handler:       handler,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retry:         retry.DefaultPolicy,
		stopCh:        make(chan struct{}),
		log:           logger.WithComponent("batch-writer").With().Str("writer", name).Logger(),
	}
}

// WithRetry sets how long a flush retries unhandled messages before
// carrying them into the next batch
func (bw *BatchWriter) WithRetry(policy retry.Policy) *BatchWriter {
	bw.retry = policy
	return bw
}

// Start begins consuming and flushing batches
func (bw *BatchWriter) Start(ctx context.Context) {
	bw.wg.Add(1)
	go bw.run(ctx)
}

// Stop flushes the pending batch and waits for the writer to exit
func (bw *BatchWriter) Stop() {
	bw.stopOnce.Do(func() { close(bw.stopCh) })
	bw.wg.Wait()
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer bw.wg.Done()

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var batch []kafka.Message
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, bw.batchSize)
	go func() {
		defer close(msgChan)
		for {
			msg, err := bw.source.Consume(consumeCtx)
			if err != nil {
				if consumeCtx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				bw.log.Error().Err(err).Msg("consumer error")
				select {
				case <-time.After(time.Second):
				case <-consumeCtx.Done():
					return
				}
				continue
			}
			select {
			case msgChan <- msg:
			case <-consumeCtx.Done():
				return
			}
		}
	}()

	// Flushing uses a context that survives cancellation so the final batch is committed
	flushCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-bw.stopCh:
			bw.flush(flushCtx, batch)
			return

		case <-ctx.Done():
			bw.flush(flushCtx, batch)
			return

		case <-ticker.C:
			if len(batch) > 0 {
				batch = bw.flush(flushCtx, batch)
			}

		case msg, ok := <-msgChan:
			if !ok {
				bw.flush(flushCtx, batch)
				return
			}
			batch = append(batch, msg)

			if len(batch) >= bw.batchSize {
				batch = bw.flush(flushCtx, batch)
			}
		}
	}
}

// flush hands the batch to the handler and commits the handled prefix,
// retrying the rest. It returns the messages still unhandled.
func (bw *BatchWriter) flush(ctx context.Context, batch []kafka.Message) []kafka.Message {
	if len(batch) == 0 {
		return nil
	}

	pending := batch
	committed := 0
	err := retry.Do(ctx, "batch writer "+bw.name, bw.retry, func() error {
		done := bw.handler(ctx, pending)
		n := handledPrefix(pending, done)

		for _, msg := range pending[:n] {
			if err := bw.source.Commit(ctx, msg); err != nil {
				bw.log.Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit offset")
				continue
			}
			committed++
		}
		pending = pending[n:]

		if len(pending) > 0 {
			return fmt.Errorf("message at partition %d offset %d not handled", pending[0].Partition, pending[0].Offset)
		}
		return nil
	})
	if err != nil {
		bw.log.Error().
			Err(err).
			Int("held", len(pending)).
			Msg("holding unhandled messages for the next flush")
	}

	bw.log.Debug().
		Int("batch", len(batch)).
		Int("committed", committed).
		Int("held", len(pending)).
		Msg("flushed batch")

	if len(pending) == 0 {
		return nil
	}
	return pending
}

// handledPrefix returns how many leading messages of batch appear in done
func handledPrefix(batch, done []kafka.Message) int {
	type position struct {
		partition int
		offset    int64
	}
	handled := make(map[position]bool, len(done))
	for _, m := range done {
		handled[position{m.Partition, m.Offset}] = true
	}

	n := 0
	for n < len(batch) && handled[position{batch[n].Partition, batch[n].Offset}] {
		n++
	}
	return n
}
