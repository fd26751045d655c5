package tracker_test

import (
	"testing"
	"time"

	"github.com/kmusic/kmusic/tracker"
)

func TestSchedulerRuns(t *testing.T) {
	s := tracker.NewScheduler()
	done := make(chan struct{})
	s.After(time.Millisecond, func() { close(done) })
	if _, ok := tracker.TimeoutReceive(done, time.Second); ok {
		t.Fatalf("closed channel should not yield a value")
	}
	select {
	case <-done:
	default:
		t.Fatalf("callback did not run")
	}
	if s.Pending() != 0 {
		t.Fatalf("pending = %d after the callback ran", s.Pending())
	}
}

func TestSchedulerCancelAll(t *testing.T) {
	s := tracker.NewScheduler()
	ran := make(chan int, 3)
	for i := range 3 {
		s.After(20*time.Millisecond, func() { ran <- i })
	}
	if s.Pending() != 3 {
		t.Fatalf("pending = %d", s.Pending())
	}
	s.CancelAll()
	if s.Pending() != 0 {
		t.Fatalf("pending = %d after CancelAll", s.Pending())
	}
	if v, ok := tracker.TimeoutReceive(ran, 60*time.Millisecond); ok {
		t.Fatalf("cancelled callback %d ran", v)
	}
}

func TestSchedulerCancelAfterRun(t *testing.T) {
	s := tracker.NewScheduler()
	done := make(chan struct{})
	cancel := s.After(0, func() { close(done) })
	<-done
	if cancel() {
		t.Fatalf("cancel reported stopping a callback that already ran")
	}
}
