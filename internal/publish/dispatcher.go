package publish

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/metrics"
	"github.com/smukkama/water-monitor/internal/monitor"
)

// Sink exports engine events to an external system
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev monitor.Event) error
}

// publishTimeout bounds a single sink call
const publishTimeout = 5 * time.Second

// Dispatcher decouples engine listeners from sink I/O. Events are queued in a
// bounded buffer; when it is full the event is dropped and counted.
type Dispatcher struct {
	sinks   []Sink
	queue   chan monitor.Event
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	log     zerolog.Logger
}

// NewDispatcher creates a dispatcher with the given queue capacity
func NewDispatcher(queueSize int, sinks ...Sink) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sinks: sinks,
		queue: make(chan monitor.Event, queueSize),
		log:   logger.WithComponent("dispatcher"),
	}
}

// Enqueue queues an event without blocking. It is safe to use as an engine listener.
func (d *Dispatcher) Enqueue(ev monitor.Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- ev:
		metrics.DispatchQueueSize.Set(float64(len(d.queue)))
		return true
	default:
		d.dropped.Add(1)
		metrics.DispatchDroppedTotal.Inc()
		d.log.Warn().Uint64("tick", ev.Tick).Msg("dispatch queue full, dropping event")
		return false
	}
}

// Start launches the delivery goroutine
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops accepting events, delivers what is queued and waits
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// Dropped returns how many events were dropped because the queue was full
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for ev := range d.queue {
		metrics.DispatchQueueSize.Set(float64(len(d.queue)))
		for _, sink := range d.sinks {
			d.deliver(sink, ev)
		}
	}
}

func (d *Dispatcher) deliver(sink Sink, ev monitor.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PanicsRecovered.WithLabelValues("sink_" + sink.Name()).Inc()
			d.log.Error().
				Str("sink", sink.Name()).
				Interface("panic", r).
				Msg("sink panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := sink.Publish(ctx, ev); err != nil {
		metrics.SinkPublishTotal.WithLabelValues(sink.Name(), "failed").Inc()
		d.log.Error().
			Err(err).
			Str("sink", sink.Name()).
			Uint64("tick", ev.Tick).
			Msg("failed to publish event")
		return
	}
	metrics.SinkPublishTotal.WithLabelValues(sink.Name(), "success").Inc()
}
