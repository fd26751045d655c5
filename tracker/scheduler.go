package tracker

import (
	"sync"
	"time"
)

// Scheduler runs callbacks after a delay. Every pending callback can be
// cancelled on its own or all at once, e.g. when the project is closed.
type Scheduler struct {
	mu      sync.Mutex
	nextID  int
	pending map[int]*time.Timer
}

func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[int]*time.Timer)}
}

// After calls f in its own goroutine once d has elapsed. The returned
// function cancels the call; it reports whether the call was stopped before
// it ran.
func (s *Scheduler) After(d time.Duration, f func()) (cancel func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.pending[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, ok := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if ok {
			f()
		}
	})
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		t, ok := s.pending[id]
		if !ok {
			return false
		}
		delete(s.pending, id)
		return t.Stop()
	}
}

// Pending returns the number of callbacks that have not run or been
// cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// CancelAll cancels every pending callback.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}
