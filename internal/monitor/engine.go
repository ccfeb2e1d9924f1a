package monitor

import (
	"sync"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/metrics"
	"github.com/smukkama/water-monitor/internal/quality"
)

const (
	// HistoryCapacity is the number of most recent readings retained
	HistoryCapacity = 50
	// AlertCapacity is the number of most recent alerts retained
	AlertCapacity = 20
)

// EventKind distinguishes engine notifications
type EventKind string

const (
	EventTick          EventKind = "tick"
	EventAlertsCleared EventKind = "alerts_cleared"
)

// Event is delivered to listeners after every state change
type Event struct {
	Kind       EventKind
	Tick       uint64
	Reading    quality.Reading
	Parameters []quality.Parameter
	NewAlerts  []alarming.Alert
}

// Listener receives engine events. It runs on the ticking goroutine and must not block.
type Listener func(Event)

// Snapshot is a consistent copy of the engine state
type Snapshot struct {
	Reading    quality.Reading     `json:"reading"`
	Parameters []quality.Parameter `json:"parameters"`
	History    []quality.Reading   `json:"history"`
	Alerts     []alarming.Alert    `json:"alerts"`
	Ticks      uint64              `json:"ticks"`
}

// Engine owns the monitoring state: the current reading, the bounded history
// and the bounded alert buffer.
type Engine struct {
	mu        sync.RWMutex
	generator *quality.Generator
	current   quality.Reading
	history   []quality.Reading
	alerts    []alarming.Alert
	ticks     uint64

	listenerMu sync.RWMutex
	listeners  []Listener
}

// NewEngine creates an engine and draws its initial reading. History starts empty.
func NewEngine(generator *quality.Generator) *Engine {
	e := &Engine{
		generator: generator,
		history:   make([]quality.Reading, 0, HistoryCapacity),
		alerts:    make([]alarming.Alert, 0, AlertCapacity),
	}
	e.current = generator.Generate()
	return e
}

// Subscribe registers a listener for subsequent events
func (e *Engine) Subscribe(l Listener) {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Tick advances the engine by one cycle
func (e *Engine) Tick() Event {
	reading := e.generator.Generate()
	params := quality.Parameters(reading)
	newAlerts := alarming.DeriveAll(params, reading.Timestamp)

	e.mu.Lock()
	e.current = reading

	e.history = append(e.history, reading)
	if over := len(e.history) - HistoryCapacity; over > 0 {
		e.history = append(e.history[:0], e.history[over:]...)
	}

	if len(newAlerts) > 0 {
		merged := make([]alarming.Alert, 0, len(newAlerts)+len(e.alerts))
		merged = append(merged, newAlerts...)
		merged = append(merged, e.alerts...)
		if len(merged) > AlertCapacity {
			merged = merged[:AlertCapacity]
		}
		e.alerts = merged
	}

	e.ticks++
	tick := e.ticks
	e.mu.Unlock()

	recordTick(reading, params, newAlerts)

	ev := Event{
		Kind:       EventTick,
		Tick:       tick,
		Reading:    reading,
		Parameters: params,
		NewAlerts:  newAlerts,
	}
	e.notify(ev)
	return ev
}

// ClearAlerts empties the alert buffer
func (e *Engine) ClearAlerts() {
	e.mu.Lock()
	e.alerts = make([]alarming.Alert, 0, AlertCapacity)
	tick := e.ticks
	e.mu.Unlock()

	e.notify(Event{Kind: EventAlertsCleared, Tick: tick})
}

// Current returns the latest reading
func (e *Engine) Current() quality.Reading {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Parameters returns the classified projection of the current reading
func (e *Engine) Parameters() []quality.Parameter {
	return quality.Parameters(e.Current())
}

// History returns the retained readings, oldest first
func (e *Engine) History() []quality.Reading {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]quality.Reading, len(e.history))
	copy(out, e.history)
	return out
}

// Alerts returns the retained alerts, newest first
func (e *Engine) Alerts() []alarming.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]alarming.Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// Ticks returns the number of completed ticks
func (e *Engine) Ticks() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ticks
}

// Snapshot returns a consistent copy of the full state
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	history := make([]quality.Reading, len(e.history))
	copy(history, e.history)
	alerts := make([]alarming.Alert, len(e.alerts))
	copy(alerts, e.alerts)

	return Snapshot{
		Reading:    e.current,
		Parameters: quality.Parameters(e.current),
		History:    history,
		Alerts:     alerts,
		Ticks:      e.ticks,
	}
}

func (e *Engine) notify(ev Event) {
	e.listenerMu.RLock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenerMu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

func recordTick(reading quality.Reading, params []quality.Parameter, alerts []alarming.Alert) {
	metrics.TicksTotal.Inc()
	metrics.WQI.Set(reading.WQI)
	for _, p := range params {
		metrics.ParameterValue.WithLabelValues(string(p.ID)).Set(p.Value)
	}
	for _, a := range alerts {
		metrics.AlertsTotal.WithLabelValues(string(a.Type), a.Parameter).Inc()
	}
}

