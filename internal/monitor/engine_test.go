package monitor

import (
	"testing"
	"time"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/quality"
)

// constRand always returns the same draw
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

// cycleRand replays a fixed sequence of draws
type cycleRand struct {
	values []float64
	i      int
}

func (c *cycleRand) Float64() float64 {
	v := c.values[c.i%len(c.values)]
	c.i++
	return v
}

// stepClock advances by step on every call
type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(src quality.RandSource) (*Engine, *stepClock) {
	clock := &stepClock{now: base, step: TickPeriod}
	return NewEngine(quality.NewGenerator(src, clock.Now)), clock
}

// allSafe draws a reading with every parameter in its optimal band
func allSafe() quality.RandSource {
	return &cycleRand{values: []float64{0.5, 0.1, 0.1, 0.5, 0.1, 0.5, 0.5}}
}

func TestEngine_InitialState(t *testing.T) {
	e, _ := newTestEngine(allSafe())

	if !e.Current().Timestamp.Equal(base) {
		t.Errorf("Expected initial reading at %v, got %v", base, e.Current().Timestamp)
	}
	if len(e.History()) != 0 {
		t.Errorf("Expected empty history, got %d", len(e.History()))
	}
	if len(e.Alerts()) != 0 {
		t.Errorf("Expected no alerts, got %d", len(e.Alerts()))
	}
	if e.Ticks() != 0 {
		t.Errorf("Expected 0 ticks, got %d", e.Ticks())
	}
}

func TestEngine_TickReplacesCurrent(t *testing.T) {
	e, _ := newTestEngine(allSafe())
	initial := e.Current()

	ev := e.Tick()

	if e.Current().Timestamp.Equal(initial.Timestamp) {
		t.Error("Expected current reading to be replaced")
	}
	if ev.Kind != EventTick || ev.Tick != 1 {
		t.Errorf("Unexpected event: %+v", ev)
	}
	if len(ev.Parameters) != 6 {
		t.Errorf("Expected 6 parameters, got %d", len(ev.Parameters))
	}
	history := e.History()
	if len(history) != 1 || !history[0].Timestamp.Equal(e.Current().Timestamp) {
		t.Errorf("Expected history to hold the new reading, got %+v", history)
	}
}

func TestEngine_HistoryCapacity(t *testing.T) {
	e, _ := newTestEngine(allSafe())

	for i := 0; i < HistoryCapacity+1; i++ {
		e.Tick()
		if n := len(e.History()); n > HistoryCapacity {
			t.Fatalf("History exceeded capacity: %d", n)
		}
	}

	history := e.History()
	if len(history) != HistoryCapacity {
		t.Fatalf("Expected %d readings, got %d", HistoryCapacity, len(history))
	}

	// The first tick's reading (base + 1 period) has been evicted
	firstTick := base.Add(TickPeriod)
	for _, r := range history {
		if r.Timestamp.Equal(firstTick) {
			t.Error("Oldest reading should have been evicted")
		}
	}

	if !history[0].Timestamp.Equal(base.Add(2 * TickPeriod)) {
		t.Errorf("Expected oldest retained reading from tick 2, got %v", history[0].Timestamp)
	}
	for i := 1; i < len(history); i++ {
		if !history[i].Timestamp.After(history[i-1].Timestamp) {
			t.Fatalf("History not chronological at %d", i)
		}
	}
	if !history[len(history)-1].Timestamp.Equal(e.Current().Timestamp) {
		t.Error("Expected newest history entry to be the current reading")
	}
}

func TestEngine_NoAlertsWhenSafe(t *testing.T) {
	e, _ := newTestEngine(allSafe())

	ev := e.Tick()

	if len(ev.NewAlerts) != 0 {
		t.Errorf("Expected no alerts, got %+v", ev.NewAlerts)
	}
	if len(e.Alerts()) != 0 {
		t.Errorf("Expected empty alert buffer, got %d", len(e.Alerts()))
	}
}

func TestEngine_AlertCapacityNewestFirst(t *testing.T) {
	// 0.99 puts TDS, turbidity and temperature outside their optimal bands
	e, _ := newTestEngine(constRand(0.99))

	var last Event
	for i := 0; i < 7; i++ {
		last = e.Tick()
		if len(last.NewAlerts) != 3 {
			t.Fatalf("Expected 3 alerts per tick, got %d", len(last.NewAlerts))
		}
		if n := len(e.Alerts()); n > AlertCapacity {
			t.Fatalf("Alert buffer exceeded capacity: %d", n)
		}
	}

	alerts := e.Alerts()
	if len(alerts) != AlertCapacity {
		t.Fatalf("Expected %d alerts, got %d", AlertCapacity, len(alerts))
	}

	expected := []string{"Total Dissolved Solids", "Turbidity", "Temperature"}
	for i, name := range expected {
		if alerts[i].Parameter != name {
			t.Errorf("Expected alert %d for %s, got %s", i, name, alerts[i].Parameter)
		}
		if !alerts[i].Timestamp.Equal(last.Reading.Timestamp) {
			t.Errorf("Expected newest alerts first, got timestamp %v", alerts[i].Timestamp)
		}
	}

	for i := 1; i < len(alerts); i++ {
		if alerts[i].Timestamp.After(alerts[i-1].Timestamp) {
			t.Fatalf("Alerts not ordered newest first at %d", i)
		}
	}
}

func TestEngine_AlertsDerivedFromNewReading(t *testing.T) {
	// Initial reading is all safe, the tick's reading is not
	src := &cycleRand{values: []float64{
		0.5, 0.1, 0.1, 0.5, 0.1, 0.5, 0.5,
		0.5, 0.1, 0.1, 0.5, 0.9, 0.5, 0.5,
	}}
	e, _ := newTestEngine(src)

	ev := e.Tick()
	if len(ev.NewAlerts) != 1 || ev.NewAlerts[0].Parameter != "Temperature" {
		t.Fatalf("Expected one temperature alert, got %+v", ev.NewAlerts)
	}
	if ev.NewAlerts[0].Type != alarming.TypeWarning {
		t.Errorf("Expected warning, got %s", ev.NewAlerts[0].Type)
	}
}

func TestEngine_ClearAlerts(t *testing.T) {
	e, _ := newTestEngine(constRand(0.99))

	var events []Event
	e.Subscribe(func(ev Event) { events = append(events, ev) })

	for i := 0; i < 10; i++ {
		e.Tick()
	}
	e.ClearAlerts()

	if n := len(e.Alerts()); n != 0 {
		t.Errorf("Expected empty alerts after clear, got %d", n)
	}
	if len(e.History()) != 10 {
		t.Errorf("Clear should not touch history, got %d", len(e.History()))
	}

	if len(events) != 11 {
		t.Fatalf("Expected 11 events, got %d", len(events))
	}
	if events[10].Kind != EventAlertsCleared {
		t.Errorf("Expected alerts_cleared event, got %s", events[10].Kind)
	}

	// Clearing an empty buffer is fine
	e.ClearAlerts()
	if n := len(e.Alerts()); n != 0 {
		t.Errorf("Expected empty alerts, got %d", n)
	}
}

func TestEngine_ReadsReturnCopies(t *testing.T) {
	e, _ := newTestEngine(constRand(0.99))
	e.Tick()

	history := e.History()
	history[0].PH = -1
	alerts := e.Alerts()
	alerts[0].Message = "changed"

	if e.History()[0].PH == -1 {
		t.Error("History returned an aliased slice")
	}
	if e.Alerts()[0].Message == "changed" {
		t.Error("Alerts returned an aliased slice")
	}
}

func TestEngine_Snapshot(t *testing.T) {
	e, _ := newTestEngine(constRand(0.99))
	e.Tick()
	e.Tick()

	snap := e.Snapshot()
	if snap.Ticks != 2 {
		t.Errorf("Expected 2 ticks, got %d", snap.Ticks)
	}
	if len(snap.History) != 2 || len(snap.Alerts) != 6 || len(snap.Parameters) != 6 {
		t.Errorf("Unexpected snapshot sizes: history=%d alerts=%d params=%d",
			len(snap.History), len(snap.Alerts), len(snap.Parameters))
	}
	if !snap.Reading.Timestamp.Equal(e.Current().Timestamp) {
		t.Error("Snapshot reading does not match current")
	}
}
