package insight

import "sync"

// Capacity is the number of most recent insights retained
const Capacity = 10

// Store holds recent insights, newest first, and tracks in-flight requests.
// Results are added in completion order, so a slow request can land after a newer one.
type Store struct {
	mu        sync.RWMutex
	insights  []Insight
	inFlight  int
	listeners []func(Insight)
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{insights: make([]Insight, 0, Capacity)}
}

// Subscribe registers a callback invoked after each insight is added
func (s *Store) Subscribe(fn func(Insight)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Add prepends an insight and evicts beyond Capacity
func (s *Store) Add(in Insight) {
	s.mu.Lock()
	merged := make([]Insight, 0, Capacity)
	merged = append(merged, in)
	merged = append(merged, s.insights...)
	if len(merged) > Capacity {
		merged = merged[:Capacity]
	}
	s.insights = merged
	listeners := append([]func(Insight){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(in)
	}
}

// List returns the retained insights, newest first
func (s *Store) List() []Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Insight, len(s.insights))
	copy(out, s.insights)
	return out
}

// Loading reports whether any request is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// Track runs fn as an in-flight request and stores its result when ok is true
func (s *Store) Track(fn func() (Insight, bool)) (Insight, bool) {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	in, ok := fn()
	if ok {
		s.Add(in)
	}
	return in, ok
}
