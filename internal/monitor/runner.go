package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/quality"
)

// TickPeriod is the fixed interval between ticks
const TickPeriod = 5 * time.Second

const tickTaskID = "monitor-tick"

// Scheduler runs a callback at a given time. Implementations must not run
// two callbacks concurrently.
type Scheduler interface {
	Schedule(id string, at time.Time, fn func()) error
	Cancel(id string) bool
}

// Runner drives Engine.Tick periodically. The next tick is only scheduled
// once the current one has returned, so ticks never overlap.
type Runner struct {
	engine    *Engine
	scheduler Scheduler
	clock     quality.Clock
	period    time.Duration

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	due       time.Time // when the pending tick is scheduled to fire
}

// NewRunner creates a runner ticking every TickPeriod
func NewRunner(engine *Engine, scheduler Scheduler, clock quality.Clock) *Runner {
	if clock == nil {
		clock = time.Now
	}
	return &Runner{
		engine:    engine,
		scheduler: scheduler,
		clock:     clock,
		period:    TickPeriod,
	}
}

// Start schedules the first tick one period from now
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	now := r.clock()
	due := now.Add(r.period)
	if err := r.scheduler.Schedule(tickTaskID, due, r.fire); err != nil {
		return fmt.Errorf("failed to schedule first tick: %w", err)
	}

	r.running = true
	r.startedAt = now
	r.due = due
	return nil
}

// Stop cancels the pending tick. A tick already executing completes but schedules no successor.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false
	r.scheduler.Cancel(tickTaskID)
}

// Running reports whether ticks are being scheduled
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// StartedAt returns when the runner was started
func (r *Runner) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

func (r *Runner) fire() {
	r.engine.Tick()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	// Successors are spaced from the previous due time so tick duration does not accumulate
	r.due = r.due.Add(r.period)
	if err := r.scheduler.Schedule(tickTaskID, r.due, r.fire); err != nil {
		log := logger.WithComponent("runner")
		log.Error().Err(err).Msg("failed to schedule next tick")
		r.running = false
	}
}
