package timer

import (
	"container/heap"
	"sync"
	"time"

	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/metrics"
)

// Task is a callback scheduled for a point in time
type Task struct {
	ID       string
	ExpiryAt time.Time
	Callback func()
	index    int // index in the heap (for heap.Interface)
}

// taskHeap is a min-heap of Tasks ordered by ExpiryAt
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].ExpiryAt.Before(h[j].ExpiryAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	n := len(*h)
	task := x.(*Task)
	task.index = n
	*h = append(*h, task)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil // avoid memory leak
	task.index = -1
	*h = old[0 : n-1]
	return task
}

// Scheduler runs callbacks at their expiry time. Callbacks execute one at a
// time on a single executor goroutine, in expiry order.
type Scheduler struct {
	heap    taskHeap
	mu      sync.Mutex
	wakeup  chan struct{}
	ready   chan *Task
	tasks   map[string]*Task // for O(1) lookup by ID
	wg      sync.WaitGroup
	started bool
	stopped bool
	stopCh  chan struct{}
	fired   uint64
}

// NewScheduler creates a scheduler. Call Start before tasks can fire.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		heap:   make(taskHeap, 0),
		wakeup: make(chan struct{}, 1),
		ready:  make(chan *Task, 16),
		tasks:  make(map[string]*Task),
		stopCh: make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// Start launches the scheduling loop and the executor
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	s.wg.Add(2)
	go s.run()
	go s.execute()
}

// Stop halts the scheduler and waits for a running callback to return.
// Pending tasks are discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// Schedule adds a task to run at expiryAt, replacing any pending task with the same ID
func (s *Scheduler) Schedule(id string, expiryAt time.Time, callback func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	// Remove existing task with same ID if present
	if existing, ok := s.tasks[id]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.tasks, id)
	}

	task := &Task{
		ID:       id,
		ExpiryAt: expiryAt,
		Callback: callback,
	}

	heap.Push(&s.heap, task)
	s.tasks[id] = task

	// Wake up the loop if this is the earliest task
	if s.heap[0] == task {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Cancel removes a pending task. It returns false if the task already fired or never existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}

	heap.Remove(&s.heap, task.index)
	delete(s.tasks, id)
	return true
}

// run is the main scheduling loop
func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		s.mu.Lock()

		if s.stopped {
			s.mu.Unlock()
			return
		}

		var waitDuration time.Duration
		if s.heap.Len() == 0 {
			// No tasks, wait for a wakeup
			waitDuration = 24 * time.Hour
		} else {
			next := s.heap[0]
			waitDuration = time.Until(next.ExpiryAt)

			if waitDuration <= 0 {
				task := heap.Pop(&s.heap).(*Task)
				delete(s.tasks, task.ID)
				s.mu.Unlock()

				// Hand off to the executor
				select {
				case s.ready <- task:
				case <-s.stopCh:
					return
				}
				continue
			}
		}

		s.mu.Unlock()

		timer := time.NewTimer(waitDuration)
		select {
		case <-timer.C:
		case <-s.wakeup:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// execute runs ready callbacks sequentially
func (s *Scheduler) execute() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.ready:
			s.invoke(task)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) invoke(task *Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PanicsRecovered.WithLabelValues("scheduler").Inc()
			log := logger.WithComponent("scheduler")
			log.Error().
				Str("task_id", task.ID).
				Interface("panic", r).
				Msg("scheduled callback panicked")
		}
	}()

	task.Callback()

	s.mu.Lock()
	s.fired++
	s.mu.Unlock()
}

// Stats returns statistics about the scheduler
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		ScheduledTasks: len(s.tasks),
		FiredTasks:     s.fired,
	}
}

// Stats contains statistics about the scheduler
type Stats struct {
	ScheduledTasks int
	FiredTasks     uint64
}

var (
	ErrSchedulerStopped = &SchedulerError{"scheduler is stopped"}
)

// SchedulerError represents a scheduler error
type SchedulerError struct {
	msg string
}

func (e *SchedulerError) Error() string {
	return e.msg
}
